package middleware

import (
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		metrics.CycleLatency.WithLabelValues(c.FullPath()).Observe(duration)
	}
}
