package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

// Metrics returns a middleware recording per-request counters and
// latencies. The route template is used as the path label so parameterized
// routes do not explode cardinality; unmatched requests share a single
// label. Accounting runs in a defer so a downstream panic still releases
// the in-flight gauge and counts the request as a 500.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncActiveRequests()

		defer func() {
			m.DecActiveRequests()

			status := c.Writer.Status()
			r := recover()
			if r != nil {
				status = http.StatusInternalServerError
			}

			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			m.RecordRequest(
				c.Request.Method,
				path,
				strconv.Itoa(status),
				time.Since(start),
			)

			if r != nil {
				panic(r)
			}
		}()

		c.Next()
	}
}
