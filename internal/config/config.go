// Package config provides configuration management for the request pipeline.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. It is constructed once at startup,
// validated, and then shared read-only across all components.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Upload  UploadConfig  `yaml:"upload"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"`
	Debug bool   `yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrailingSlashRedirect selects redirect mode (301) for the trailing
	// slash normalizer; the default is internal rewrite.
	TrailingSlashRedirect bool `yaml:"trailing_slash_redirect"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	Prefix string     `yaml:"prefix"`
	Auth   AuthConfig `yaml:"auth"`
}

// AuthConfig groups the two authentication schemes.
type AuthConfig struct {
	APIKey APIKeyConfig `yaml:"api_key"`
	JWT    JWTConfig    `yaml:"jwt"`
}

// APIKeyConfig holds settings for the static API key scheme.
type APIKeyConfig struct {
	Enabled         bool     `yaml:"enabled"`
	HeaderName      string   `yaml:"header_name"`
	Prefix          string   `yaml:"prefix"`
	Key             string   `yaml:"key"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// JWTConfig holds settings for the signed token scheme.
type JWTConfig struct {
	Enabled                bool     `yaml:"enabled"`
	SecretKey              string   `yaml:"secret_key"`
	Algorithm              string   `yaml:"algorithm"`
	TokenExpireMinutes     int      `yaml:"token_expire_minutes"`
	RefreshTokenExpireDays int      `yaml:"refresh_token_expire_days"`
	ExcludePatterns        []string `yaml:"exclude_patterns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	HTTP   HTTPLoggingConfig `yaml:"http"`
}

// HTTPLoggingConfig holds request/response logging settings.
type HTTPLoggingConfig struct {
	RequestBody        bool     `yaml:"request_body"`
	ResponseBody       bool     `yaml:"response_body"`
	RequestHeaders     bool     `yaml:"request_headers"`
	ResponseHeaders    bool     `yaml:"response_headers"`
	MaxBodyLength      int      `yaml:"max_body_length"`
	SensitiveFields    []string `yaml:"sensitive_fields"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	AdditionalExcludes []string `yaml:"additional_exclude_paths"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	Path        string `yaml:"path"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

// defaultExcludePatterns are the paths no policy applies to out of the box.
var defaultExcludePatterns = []string{
	"/health/**",
	"/metrics",
	"/docs/**",
	"/redoc/**",
	"/openapi.json",
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "httpgate",
			Env:  "dev",
		},
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			Prefix: "/api",
			Auth: AuthConfig{
				APIKey: APIKeyConfig{
					Enabled:         true,
					HeaderName:      "Authorization",
					Prefix:          "ApiKey ",
					ExcludePatterns: clone(defaultExcludePatterns),
				},
				JWT: JWTConfig{
					Enabled:                false,
					Algorithm:              "HS256",
					TokenExpireMinutes:     30,
					RefreshTokenExpireDays: 7,
					ExcludePatterns: append(clone(defaultExcludePatterns),
						"/auth/token", "/auth/refresh"),
				},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			HTTP: HTTPLoggingConfig{
				RequestBody:     true,
				ResponseBody:    true,
				RequestHeaders:  true,
				ResponseHeaders: false,
				MaxBodyLength:   10000,
				SensitiveFields: []string{
					"password", "token", "authorization", "api_key", "secret",
				},
				ExcludePatterns: clone(defaultExcludePatterns),
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Upload: UploadConfig{
			Path:        "uploads",
			MaxFileSize: 10 << 20,
		},
	}
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return &ValidationError{Field: "logging.format", Message: "must be 'json' or 'console'"}
	}
	if c.Logging.HTTP.MaxBodyLength <= 0 {
		return &ValidationError{Field: "logging.http.max_body_length", Message: "must be positive"}
	}
	if c.API.Auth.JWT.Enabled {
		if c.API.Auth.JWT.SecretKey == "" {
			return &ValidationError{Field: "api.auth.jwt.secret_key", Message: "required when jwt auth is enabled"}
		}
		if c.API.Auth.JWT.TokenExpireMinutes <= 0 {
			return &ValidationError{Field: "api.auth.jwt.token_expire_minutes", Message: "must be positive"}
		}
	}
	if c.API.Auth.APIKey.Enabled && c.API.Auth.APIKey.Prefix == "" {
		return &ValidationError{Field: "api.auth.api_key.prefix", Message: "required when api key auth is enabled"}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return &ValidationError{Field: "metrics.path", Message: "must start with '/'"}
	}
	return nil
}

// SensitiveFieldSet returns the configured sensitive field names as a
// lowercase lookup set.
func (h *HTTPLoggingConfig) SensitiveFieldSet() map[string]bool {
	set := make(map[string]bool, len(h.SensitiveFields))
	for _, f := range h.SensitiveFields {
		set[strings.ToLower(f)] = true
	}
	return set
}

// AccessTokenTTL returns the configured access token lifetime.
func (j *JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.TokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (j *JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTokenExpireDays) * 24 * time.Hour
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
}
