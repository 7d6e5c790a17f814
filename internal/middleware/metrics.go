package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolpulse/insights-api/internal/service"
)

// Metrics times every request and feeds method, route and status into the
// metrics service. The registered route pattern is preferred over the raw
// URL so path parameters do not explode label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
