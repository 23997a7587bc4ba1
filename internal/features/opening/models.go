// Package opening реализует открытие кейса в два шага.
// prepare разыгрывает приз и выдаёт ленту с токеном, commit по токену
// ровно один раз списывает цену и кладёт приз в инвентарь.
// models.go описывает сессию, решение о расчёте и хранилище сессий.
package opening

import (
	"context"
	"time"

	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

// Session — разыгранный, но ещё не выданный приз.
// Создаётся prepare, удаляется commit или очисткой по TTL. Не изменяется.
type Session struct {
	Token        string
	AccountID    int64
	CaseID       string
	Prize        catalog.Prize // Снимок приза на момент розыгрыша
	WinningIndex int
	CreatedAt    time.Time
}

// Settlement — решение, принятое над сессией и заблокированным аккаунтом.
type Settlement struct {
	Consume bool                   // Удалить сессию
	Apply   bool                   // Списать Price, добавить Item, увеличить cases_opened
	Price   int64                  // Сколько списать
	Item    accounts.InventoryItem // Что положить в инвентарь
	Err     error                  // Ошибка для вызывающего (после фиксации Consume)
}

// DecideFunc вызывается хранилищем внутри транзакции, когда сессия и
// её аккаунт уже заблокированы. Не должна обращаться к хранилищу.
type DecideFunc func(s *Session, acc *accounts.Account) Settlement

// Outcome — результат успешного расчёта.
type Outcome struct {
	Session *Session
	Account *accounts.Account       // Аккаунт после расчёта
	Item    *accounts.InventoryItem // Выданный предмет с присвоенным ID
}

// Store — хранилище сессий. Реализуется тем же движком, что и аккаунты,
// чтобы удаление сессии и изменение баланса шли одной транзакцией.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	// ConsumeSession в одной транзакции:
	//   - блокирует сессию (нет → common.ErrSessionNotFound)
	//   - блокирует аккаунт сессии
	//   - спрашивает decide и применяет Settlement
	// Если Settlement.Consume == false, ничего не меняется.
	// Settlement.Err возвращается после фиксации.
	ConsumeSession(ctx context.Context, token string, decide DecideFunc) (*Outcome, error)
	// SweepSessions удаляет сессии, созданные раньше before.
	SweepSessions(ctx context.Context, before time.Time) (int64, error)
}

// PrepareResult — ответ prepare: лента для анимации и токен.
type PrepareResult struct {
	Token        string          `json:"token"`
	Sequence     []catalog.Prize `json:"sequence"`
	WinningIndex int             `json:"winning_index"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// CommitResult — ответ commit.
type CommitResult struct {
	Prize        catalog.Prize           `json:"prize"`
	WinningIndex int                     `json:"winning_index"`
	Account      *accounts.Account       `json:"account"`
	Item         *accounts.InventoryItem `json:"item"`
}
