package middleware

import (
	"time"

	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		// Log format: [method] path?query - status (latency) request_id
		logger.Infof("[%s] %s - %d (%v) request_id=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start), envelope.RequestID(c))
	}
}
