// Package admin — handlers.go: HTTP-эндпоинт тестового начисления.
package admin

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
)

// Handler обрабатывает /api/admin/*.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты. Без хеша пароля маршрут не регистрируется.
func (h *Handler) Register(api *gin.RouterGroup) {
	if !h.service.Enabled() {
		return
	}
	api.POST("/admin/add-balance", h.AddBalance)
}

// AddBalance — POST /api/admin/add-balance.
func (h *Handler) AddBalance(c *gin.Context) {
	var req AddBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	acc, err := h.service.AddBalance(c.Request.Context(), c.ClientIP(), c.GetHeader(PasswordHeader), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, acc)
}
