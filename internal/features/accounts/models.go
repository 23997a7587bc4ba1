// Package accounts управляет аккаунтами игроков: регистрацией, балансом,
// просмотрами рекламы и инвентарём.
// models.go описывает структуры, которые хранилища читают и пишут.
package accounts

import "time"

// Account — игрок мини-приложения. Ключ — Telegram user ID.
type Account struct {
	ID          int64     `json:"telegram_id"`  // Telegram user ID
	FirstName   string    `json:"first_name"`   // Имя из Telegram
	LastName    string    `json:"last_name"`    // Фамилия (может быть пустой)
	Balance     int64     `json:"balance"`      // Текущий баланс, никогда не < 0
	AdsWatched  int64     `json:"ads_watched"`  // Сколько реклам досмотрено
	CasesOpened int64     `json:"cases_opened"` // Сколько кейсов открыто
	TotalSpent  int64     `json:"total_spent"`  // Сколько монет ушло на кейсы
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// Profile — данные, с которыми клиент регистрирует аккаунт.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
}

// InventoryItem — выигранный приз. Снимок приза на момент открытия,
// поэтому правка каталога не меняет старый инвентарь.
type InventoryItem struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"telegram_id"`
	CaseID     string    `json:"case_id"`
	PrizeID    string    `json:"prize_id"`
	PrizeName  string    `json:"prize_name"`
	PrizeImage string    `json:"prize_image"`
	ObtainedAt time.Time `json:"obtained_at"`
}

// AdReward — запись журнала просмотров рекламы.
// Баланс по журналу не пересчитывается, это только аудит.
type AdReward struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"telegram_id"`
	Reward    int64     `json:"reward"`
	WatchedAt time.Time `json:"watched_at"`
}

// Stats — аккаунт плюс агрегаты по журналам.
type Stats struct {
	Account
	TotalAds      int64 `json:"total_ads"`      // Записей в журнале рекламы
	TotalRewards  int64 `json:"total_rewards"`  // Сумма наград за рекламу
	TotalOpenings int64 `json:"total_openings"` // Предметов в инвентаре
}

// ProfileView — аккаунт вместе с инвентарём.
type ProfileView struct {
	Account
	Inventory []InventoryItem `json:"inventory"`
}
