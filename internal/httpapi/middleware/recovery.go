package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
)

// Recovery перехватывает панику в обработчике и отвечает 500.
// Стек уходит в лог, клиенту только код ошибки.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"trace_id":  GetTraceID(c),
					"method":    c.Request.Method,
					"path":      c.Request.URL.Path,
					"panic":     fmt.Sprintf("%v", r),
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике, восстановлено")

				response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "внутренняя ошибка сервера")
			}
		}()

		c.Next()
	}
}
