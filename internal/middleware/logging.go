package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
)

// Logger middleware logs request details and records request metrics
func Logger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log.LogHTTPRequest(c.Request.Method, path, c.ClientIP(), status, latency)
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), strconv.Itoa(status), latency.Seconds())
	}
}
