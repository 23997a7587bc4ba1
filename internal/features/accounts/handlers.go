// Package accounts — handlers.go обрабатывает HTTP-запросы мини-приложения:
// регистрацию, просмотр рекламы, профиль, статистику и историю рекламы.
package accounts

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
)

// Handler обрабатывает запросы аккаунтов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик аккаунтов.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/profile", h.InitProfile)
	api.GET("/profile/:telegram_id", h.GetProfile)
	api.POST("/watch-ad", h.WatchAd)
	api.GET("/stats/:telegram_id", h.GetStats)
	api.GET("/ad-history/:telegram_id", h.GetAdHistory)
}

type initRequest struct {
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

type watchAdRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

// InitProfile — POST /api/profile. 201 для нового игрока, 200 для существующего.
func (h *Handler) InitProfile(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	acc, created, err := h.service.Init(c.Request.Context(), Profile{
		ID:        req.TelegramID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, acc)
		return
	}
	response.OK(c, acc)
}

// GetProfile — GET /api/profile/:telegram_id, аккаунт с инвентарём.
func (h *Handler) GetProfile(c *gin.Context) {
	id, err := PathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Profile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// WatchAd — POST /api/watch-ad.
func (h *Handler) WatchAd(c *gin.Context) {
	var req watchAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}
	acc, err := h.service.CreditAdWatch(c.Request.Context(), req.TelegramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, acc)
}

// GetStats — GET /api/stats/:telegram_id.
func (h *Handler) GetStats(c *gin.Context) {
	id, err := PathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// GetAdHistory — GET /api/ad-history/:telegram_id?limit=10.
// Нечисловой limit трактуется как значение по умолчанию.
func (h *Handler) GetAdHistory(c *gin.Context) {
	id, err := PathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := h.service.AdHistory(c.Request.Context(), id, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}

// PathID читает :telegram_id из пути.
func PathID(c *gin.Context) (int64, error) {
	raw := c.Param("telegram_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: telegram_id %q", common.ErrValidation, raw)
	}
	return id, nil
}
