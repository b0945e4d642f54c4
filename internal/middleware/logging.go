package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidgrab/vidgrab/internal/logging"
)

// Logger middleware logs request details
func Logger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.WithField("method", c.Request.Method).
			WithField("path", path).
			WithField("query", query).
			WithField("status", c.Writer.Status()).
			WithField("duration", time.Since(start).String()).
			WithField("ip", c.ClientIP()).
			Info("request")
	}
}
