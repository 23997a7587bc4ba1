package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
	"serotonyl.ru/lootcase-bot/internal/ratelimit"
)

// RateLimit ограничивает частоту запросов с одного IP.
func RateLimit(rl *ratelimit.Limiter[string]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.Allow(ip) {
			log.WithFields(log.Fields{
				"client_ip": ip,
				"path":      c.Request.URL.Path,
				"trace_id":  GetTraceID(c),
			}).Warn("Превышен лимит запросов")
			response.Abort(c, http.StatusTooManyRequests, response.CodeRateLimited, "слишком много запросов, попробуйте позже")
			return
		}
		c.Next()
	}
}
