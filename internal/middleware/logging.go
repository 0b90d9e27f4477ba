package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/minjoonchoi/httpgate/internal/observability"
	"github.com/minjoonchoi/httpgate/internal/pathmatch"
)

const (
	// RequestIDHeader is the header carrying the correlation identifier.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for the correlation identifier.
	RequestIDKey = "requestID"
)

// RequestLoggingConfig holds configuration for the request/response logging
// middleware.
type RequestLoggingConfig struct {
	Logger             observability.Logger
	Exclusions         *pathmatch.ExclusionList
	SensitiveFields    map[string]bool
	MaxBodyLength      int
	LogRequestBody     bool
	LogResponseBody    bool
	LogRequestHeaders  bool
	LogResponseHeaders bool
}

// RequestLogging returns a middleware that emits one "request started" and
// one "request completed" (or "request failed") record per non-excluded
// request, joined by a fresh correlation identifier stamped onto the
// response as X-Request-ID. Excluded paths produce no records at all.
func RequestLogging(cfg RequestLoggingConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = observability.GetGlobalLogger()
	}
	if cfg.Exclusions == nil {
		cfg.Exclusions = pathmatch.NewExclusionList(nil, nil)
	}

	capture := CaptureConfig{
		MaxBodyLength:   cfg.MaxBodyLength,
		SensitiveFields: cfg.SensitiveFields,
		Logger:          cfg.Logger,
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if cfg.Exclusions.IsExcluded(path) {
			c.Next()
			return
		}

		requestID := uuid.New().String()
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()

		startFields := buildStartFields(c, requestID, path, cfg, capture)
		cfg.Logger.Info("request started", startFields...)

		var writer *bodyCaptureWriter
		if cfg.LogResponseBody {
			writer = newBodyCaptureWriter(c.Writer)
			c.Writer = writer
		}

		defer func() {
			elapsed := time.Since(start)

			if r := recover(); r != nil {
				failFields := append(startFields,
					observability.Int("status_code", 500),
					observability.Float64("process_time_ms", elapsedMillis(elapsed)),
					observability.String("error", fmt.Sprint(r)),
				)
				cfg.Logger.Error("request failed", failFields...)
				panic(r)
			}

			status := c.Writer.Status()
			endFields := append(startFields,
				observability.Int("status_code", status),
				observability.Float64("process_time_ms", elapsedMillis(elapsed)),
			)

			if cfg.LogResponseHeaders {
				endFields = append(endFields, observability.Any("response_headers",
					MaskHeaders(c.Writer.Header(), cfg.SensitiveFields)))
			}
			if writer != nil {
				if body, ok := CaptureResponseBody(writer.Body(), c.Writer.Header(), capture); ok {
					endFields = append(endFields, observability.String("response_body", body))
				}
			}
			if len(c.Errors) > 0 {
				endFields = append(endFields, observability.String("errors", c.Errors.String()))
			}

			logByStatus(cfg.Logger, status, "request completed", endFields)
		}()

		c.Next()
	}
}

// buildStartFields assembles the request-phase log fields.
func buildStartFields(
	c *gin.Context,
	requestID, path string,
	cfg RequestLoggingConfig,
	capture CaptureConfig,
) []observability.Field {
	fields := []observability.Field{
		observability.String("request_id", requestID),
		observability.String("method", c.Request.Method),
		observability.String("path", path),
		observability.String("client", c.ClientIP()),
		observability.Any("query_params", MaskQueryParams(c.Request.URL.Query(), cfg.SensitiveFields)),
		observability.Any("path_params", pathParams(c)),
	}

	if cfg.LogRequestHeaders {
		fields = append(fields, observability.Any("headers",
			MaskHeaders(c.Request.Header, cfg.SensitiveFields)))
	}
	if cfg.LogRequestBody {
		if body, ok := CaptureRequestBody(c.Request, capture); ok {
			fields = append(fields, observability.String("request_body", body))
		}
	}
	return fields
}

// pathParams converts gin route parameters to a map.
func pathParams(c *gin.Context) map[string]string {
	if len(c.Params) == 0 {
		return nil
	}
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return params
}

// elapsedMillis converts a duration to milliseconds rounded to two decimal
// places.
func elapsedMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// logByStatus logs at a level chosen by response status.
func logByStatus(logger observability.Logger, status int, msg string, fields []observability.Field) {
	switch {
	case status >= 500:
		logger.Error(msg, fields...)
	case status >= 400:
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// GetRequestID returns the correlation identifier assigned to the request,
// if any.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}
