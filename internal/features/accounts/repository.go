// Package accounts — repository.go описывает хранилище аккаунтов.
// Реализации лежат в internal/db/postgres и internal/db/sqlite.
package accounts

import (
	"context"
	"time"
)

// Repository — хранилище аккаунтов и их журналов.
//
// Все изменения баланса одного аккаунта сериализуются хранилищем:
// в Postgres через блокировку строки, в SQLite через единственное соединение.
// Ошибки драйвера оборачиваются в common.ErrStoreUnavailable,
// отсутствие аккаунта — common.ErrAccountNotFound.
type Repository interface {
	// Upsert создаёт аккаунт с нулевым балансом или только обновляет last_active.
	// Имя существующего аккаунта не меняется. Второй результат — был ли аккаунт создан.
	Upsert(ctx context.Context, p Profile, now time.Time) (*Account, bool, error)
	Get(ctx context.Context, id int64) (*Account, error)
	// CreditAd атомарно начисляет награду, увеличивает ads_watched и пишет журнал.
	CreditAd(ctx context.Context, id int64, reward int64, now time.Time) (*Account, error)
	// Credit начисляет монеты без записи в журнал рекламы (админский путь).
	Credit(ctx context.Context, id int64, amount int64, now time.Time) (*Account, error)
	// Inventory возвращает предметы от новых к старым.
	Inventory(ctx context.Context, id int64) ([]InventoryItem, error)
	// AdHistory возвращает не больше limit последних просмотров.
	AdHistory(ctx context.Context, id int64, limit int) ([]AdReward, error)
	Stats(ctx context.Context, id int64) (*Stats, error)
}
