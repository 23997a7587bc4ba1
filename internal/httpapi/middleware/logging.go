package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logging пишет access-лог каждого запроса.
// Пути из skip (например /health) не логируются.
func Logging(skip ...string) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipPaths[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"trace_id":  GetTraceID(c),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"duration":  time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			entry = entry.WithField("errors", errs.String())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP запрос")
		case status >= 400:
			entry.Warn("HTTP запрос")
		default:
			entry.Debug("HTTP запрос")
		}
	}
}
