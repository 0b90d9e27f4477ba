package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/auth/apikey"
	"github.com/minjoonchoi/httpgate/internal/auth/token"
	"github.com/minjoonchoi/httpgate/internal/config"
	"github.com/minjoonchoi/httpgate/internal/handlers"
	"github.com/minjoonchoi/httpgate/internal/middleware"
	"github.com/minjoonchoi/httpgate/internal/observability"
	"github.com/minjoonchoi/httpgate/internal/pathmatch"
)

// Options carries the collaborators the server composes.
type Options struct {
	Config  *config.Config
	Logger  observability.Logger
	Metrics *observability.Metrics
	Tokens  *token.Service
	Users   *token.UserStore
	Version string
}

// Server owns the HTTP listener and the request pipeline.
type Server struct {
	cfg    *config.Config
	logger observability.Logger
	engine *gin.Engine
	http   *http.Server
}

// New builds a server with the full middleware pipeline and all routes
// mounted. Middleware order is fixed: recovery, trailing slash
// normalization, metrics, request logging, then the auth gate.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// The trailing slash middleware owns slash handling.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	engine.Use(middleware.Recovery(logger))

	slashMode := middleware.TrailingSlashInternal
	if cfg.Server.TrailingSlashRedirect {
		slashMode = middleware.TrailingSlashRedirect
	}
	engine.Use(middleware.TrailingSlash(engine, middleware.TrailingSlashConfig{
		Mode:   slashMode,
		Logger: logger,
	}))

	if opts.Metrics != nil && cfg.Metrics.Enabled {
		engine.Use(middleware.Metrics(opts.Metrics))
	}

	logCfg := cfg.Logging.HTTP
	engine.Use(middleware.RequestLogging(middleware.RequestLoggingConfig{
		Logger:             logger,
		Exclusions:         pathmatch.NewExclusionList(nil, append(logCfg.ExcludePatterns, logCfg.AdditionalExcludes...)),
		SensitiveFields:    cfg.Logging.HTTP.SensitiveFieldSet(),
		MaxBodyLength:      logCfg.MaxBodyLength,
		LogRequestBody:     logCfg.RequestBody,
		LogResponseBody:    logCfg.ResponseBody,
		LogRequestHeaders:  logCfg.RequestHeaders,
		LogResponseHeaders: logCfg.ResponseHeaders,
	}))

	apiKeyCfg := cfg.API.Auth.APIKey
	jwtCfg := cfg.API.Auth.JWT
	gate := middleware.NewAuthGate(middleware.AuthGateConfig{
		APIKey:           apikey.NewValidator(apiKeyCfg.Enabled, apiKeyCfg.Key, logger),
		APIKeyPrefix:     apiKeyCfg.Prefix,
		APIKeyExclusions: pathmatch.NewExclusionList(nil, apiKeyCfg.ExcludePatterns),
		Tokens:           opts.Tokens,
		JWTEnabled:       jwtCfg.Enabled,
		JWTExclusions:    pathmatch.NewExclusionList(nil, jwtCfg.ExcludePatterns),
		Logger:           logger,
	})
	engine.Use(gate.Middleware())

	handlers.NewHealthHandler(cfg.App.Name, opts.Version).Register(engine)
	if opts.Tokens != nil && opts.Users != nil {
		handlers.NewAuthHandler(opts.Tokens, opts.Users, logger).Register(engine)
	}
	handlers.NewItemsHandler().Register(engine)
	handlers.NewFilesHandler(cfg.Upload, logger).Register(engine)

	if opts.Metrics != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &Server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		http: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
	return srv, nil
}

// Engine exposes the underlying gin engine, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		observability.String("addr", s.http.Addr),
		observability.String("app", s.cfg.App.Name),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections until the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
