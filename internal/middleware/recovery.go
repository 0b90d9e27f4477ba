package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

// Recovery returns a middleware that converts handler panics into 500
// responses with a JSON body, logging the panic value and stack trace.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					observability.String("request_id", GetRequestID(c)),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.Any("panic", r),
					observability.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": "Internal server error.",
				})
			}
		}()
		c.Next()
	}
}
