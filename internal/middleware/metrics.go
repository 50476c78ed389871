package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw
// paths such as probing scanners out of the label set.
const unmatchedRoute = "unmatched"

// Metrics records latency and status per route pattern. Paths listed in skip
// are not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
