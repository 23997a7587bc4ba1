// Package admin — тестовое начисление баланса по паролю администратора.
// models.go описывает запрос и параметры защиты от перебора.
package admin

import "time"

// AddBalanceRequest — тело POST /api/admin/add-balance.
type AddBalanceRequest struct {
	TelegramID int64 `json:"telegram_id"`
	Amount     int64 `json:"amount"`
}

// PasswordHeader — заголовок с паролем администратора.
const PasswordHeader = "X-Admin-Password"

// Защита от brute-force: столько неверных паролей за окно, и ключ блокируется.
const (
	MaxFailedAttempts = 3
	LockoutWindow     = time.Hour
)
