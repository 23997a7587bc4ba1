// Package response — единый формат ответов HTTP API.
// Успешные ответы отдают объект как есть, ошибки — {"error": ..., "code": ...}.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/common"
)

// Коды ошибок для клиента мини-приложения.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	CodeCaseNotFound      = "CASE_NOT_FOUND"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeSessionMismatch   = "SESSION_MISMATCH"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidCatalog    = "INVALID_CATALOG"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type mapping struct {
	target error
	status int
	code   string
}

// Порядок важен: первая совпавшая через errors.Is запись выигрывает.
var mappings = []mapping{
	{common.ErrValidation, http.StatusBadRequest, CodeValidation},
	{common.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrTooManyAttempts, http.StatusTooManyRequests, CodeRateLimited},
	{common.ErrAccountNotFound, http.StatusNotFound, CodeAccountNotFound},
	{common.ErrCaseNotFound, http.StatusNotFound, CodeCaseNotFound},
	{common.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{common.ErrSessionMismatch, http.StatusConflict, CodeSessionMismatch},
	{common.ErrSessionExpired, http.StatusGone, CodeSessionExpired},
	{common.ErrInsufficientFunds, http.StatusBadRequest, CodeInsufficientFunds},
	{common.ErrInvalidCatalog, http.StatusInternalServerError, CodeInvalidCatalog},
	{common.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable},
}

// Classify возвращает HTTP-статус и код для доменной ошибки.
func Classify(err error) (int, string) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// OK отправляет 200 с данными.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created отправляет 201 с данными.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Error переводит доменную ошибку в HTTP-ответ.
// Клиенту уходит сообщение sentinel-ошибки, подробности остаются в логе.
func Error(c *gin.Context, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":   c.Request.URL.Path,
			"status": status,
		}).WithError(err).Error("Ошибка обработки запроса")
		msg = publicMessage(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}

// Abort отправляет ошибку с явным статусом, без доменной ошибки.
func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}

// publicMessage скрывает детали драйвера БД от клиента.
func publicMessage(err error) string {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.target.Error()
		}
	}
	return "внутренняя ошибка сервера"
}
