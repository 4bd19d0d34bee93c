package middleware

import (
	"strconv"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per route template, so path
// parameters do not explode label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ts := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.Latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(ts).Seconds())
	}
}
