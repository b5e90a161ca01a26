package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/pkg/metrics"
)

// MetricsMiddleware records request count, latency and in-flight requests per route pattern.
// WebSocket upgrades stay in flight for the life of the stream and are counted once they close.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHousekeeping(c.Request.URL.Path) {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
