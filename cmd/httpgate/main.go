// Package main is the entry point for the httpgate server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/minjoonchoi/httpgate/internal/auth/token"
	"github.com/minjoonchoi/httpgate/internal/config"
	"github.com/minjoonchoi/httpgate/internal/observability"
	"github.com/minjoonchoi/httpgate/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)

	run(cfg, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("HTTPGATE_CONFIG_PATH", "configs/httpgate.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("HTTPGATE_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("HTTPGATE_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("httpgate version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	logCfg.Level = flags.logLevel
	logCfg.Format = flags.logFormat

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration. A missing
// config file falls back to defaults.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting httpgate",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("config file not found, using defaults",
				observability.String("path", configPath))
			return config.DefaultConfig()
		}
		logger.Error("failed to load configuration", observability.Error(err))
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", observability.Error(err))
		os.Exit(1)
	}
	return cfg
}

// run wires the application and serves until a shutdown signal arrives.
func run(cfg *config.Config, configPath string, logger observability.Logger) {
	metrics := observability.NewMetrics(cfg.App.Name)
	metrics.SetBuildInfo(version, runtime.Version())

	var tokens *token.Service
	var users *token.UserStore
	if cfg.API.Auth.JWT.Enabled {
		var err error
		tokens, err = token.NewService(token.Config{
			SecretKey:  cfg.API.Auth.JWT.SecretKey,
			Algorithm:  cfg.API.Auth.JWT.Algorithm,
			AccessTTL:  cfg.API.Auth.JWT.AccessTokenTTL(),
			RefreshTTL: cfg.API.Auth.JWT.RefreshTokenTTL(),
		}, token.WithLogger(logger))
		if err != nil {
			logger.Error("failed to initialize token service", observability.Error(err))
			os.Exit(1)
		}
		users = token.NewUserStore()
		seedDemoUsers(cfg, users, logger)
	}

	srv, err := server.New(server.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Tokens:  tokens,
		Users:   users,
		Version: version,
	})
	if err != nil {
		logger.Error("failed to initialize server", observability.Error(err))
		os.Exit(1)
	}

	watcher := startConfigWatcher(configPath, logger)
	if watcher != nil {
		defer func() { _ = watcher.Stop() }()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", observability.Error(err))
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received", observability.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// startConfigWatcher watches the config file for edits. The middleware
// pipeline is immutable once built, so a change is only logged; a restart
// applies it.
func startConfigWatcher(configPath string, logger observability.Logger) *config.Watcher {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		logger.Info("configuration file changed, restart to apply",
			observability.String("path", configPath))
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("config watcher unavailable", observability.Error(err))
		return nil
	}
	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("config watcher failed to start", observability.Error(err))
		return nil
	}
	return watcher
}

// seedDemoUsers loads development credentials so the password grant works
// out of the box in dev.
func seedDemoUsers(cfg *config.Config, users *token.UserStore, logger observability.Logger) {
	if cfg.App.Env != "dev" {
		return
	}
	password := getEnvOrDefault("HTTPGATE_DEMO_PASSWORD", "secret")
	if err := users.Add("johndoe", "johndoe@example.com", password); err != nil {
		logger.Warn("failed to seed demo user", observability.Error(err))
		return
	}
	logger.Info("seeded demo user", observability.String("username", "johndoe"))
}

// getEnvOrDefault returns an environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
