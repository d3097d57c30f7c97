package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
)

// RequestLogger logs one line per request through log.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Error("%s %s -> %d (%v)", c.Request.Method, c.FullPath(), status, time.Since(start))
		case status >= 400:
			log.Warn("%s %s -> %d (%v)", c.Request.Method, c.FullPath(), status, time.Since(start))
		default:
			log.Debug("%s %s -> %d (%v)", c.Request.Method, c.FullPath(), status, time.Since(start))
		}
	}
}
