// Package opening — handlers.go обрабатывает HTTP-запросы витрины и открытия кейсов.
package opening

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
)

// Handler обрабатывает запросы кейсов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик кейсов.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/cases", h.ListCases)
	api.POST("/cases/:case_id/prepare", h.Prepare)
	api.POST("/cases/:case_id/commit", h.Commit)
}

type prepareRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type commitRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Token      string `json:"token"`
}

// ListCases — GET /api/cases.
func (h *Handler) ListCases(c *gin.Context) {
	response.OK(c, h.service.ListCases())
}

// Prepare — POST /api/cases/:case_id/prepare.
func (h *Handler) Prepare(c *gin.Context) {
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}
	res, err := h.service.Prepare(c.Request.Context(), req.TelegramID, c.Param("case_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Commit — POST /api/cases/:case_id/commit.
func (h *Handler) Commit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}
	res, err := h.service.Commit(c.Request.Context(), req.TelegramID, c.Param("case_id"), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
