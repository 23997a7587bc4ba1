// Package middleware содержит промежуточные обработчики HTTP API:
// trace id, логирование, восстановление после паники, CORS и rate-limiting.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDKey — ключ trace id в gin.Context.
	TraceIDKey = "trace_id"
	// TraceIDHeader — заголовок, в котором trace id приходит и уходит.
	TraceIDHeader = "X-Trace-ID"
)

// TraceID проставляет каждому запросу trace id.
// Если клиент прислал свой X-Trace-ID, используется он.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID достаёт trace id из контекста запроса.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
