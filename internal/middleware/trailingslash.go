package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

// TrailingSlashMode selects how paths ending in "/" are normalized.
type TrailingSlashMode string

const (
	// TrailingSlashInternal re-dispatches the request to the normalized
	// path without a round trip to the client.
	TrailingSlashInternal TrailingSlashMode = "internal"
	// TrailingSlashRedirect answers with 301 Moved Permanently pointing at
	// the normalized path.
	TrailingSlashRedirect TrailingSlashMode = "redirect"
)

// TrailingSlashConfig holds configuration for the trailing slash
// normalizer.
type TrailingSlashConfig struct {
	Mode   TrailingSlashMode
	Logger observability.Logger
}

// TrailingSlash returns a middleware that normalizes request paths ending
// in "/" to their slash-less form. The root path "/" is never rewritten.
// The engine must have RedirectTrailingSlash disabled so the normalizer
// owns this behavior.
func TrailingSlash(engine *gin.Engine, cfg TrailingSlashConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = observability.GetGlobalLogger()
	}
	if cfg.Mode == "" {
		cfg.Mode = TrailingSlashInternal
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if len(path) <= 1 || !strings.HasSuffix(path, "/") {
			c.Next()
			return
		}

		normalized := strings.TrimRight(path, "/")
		if normalized == "" {
			normalized = "/"
		}

		if cfg.Mode == TrailingSlashRedirect {
			target := normalized
			if raw := c.Request.URL.RawQuery; raw != "" {
				target += "?" + raw
			}
			cfg.Logger.Debug("redirecting trailing slash",
				observability.String("from", path),
				observability.String("to", normalized),
			)
			c.Redirect(http.StatusMovedPermanently, target)
			c.Abort()
			return
		}

		cfg.Logger.Debug("rewriting trailing slash",
			observability.String("from", path),
			observability.String("to", normalized),
		)
		c.Request.URL.Path = normalized
		engine.HandleContext(c)
		c.Abort()
	}
}
