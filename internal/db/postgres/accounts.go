package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
)

const accountColumns = `telegram_id, first_name, last_name, balance, ads_watched,
	cases_opened, total_spent, created_at, last_active`

// Store — хранилище аккаунтов и сессий открытия на PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore создаёт хранилище поверх готового пула.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Upsert создаёт аккаунт или обновляет только last_active.
// xmax = 0 у строки, которую вставил этот же запрос.
func (s *Store) Upsert(ctx context.Context, p accounts.Profile, now time.Time) (*accounts.Account, bool, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO accounts (telegram_id, first_name, last_name, created_at, last_active)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET last_active = EXCLUDED.last_active
		RETURNING `+accountColumns+`, (xmax = 0) AS created
	`, p.ID, p.FirstName, p.LastName, now)

	var acc accounts.Account
	var created bool
	if err := row.Scan(accountDest(&acc, &created)...); err != nil {
		return nil, false, storeErr("создание аккаунта", err)
	}
	normalize(&acc)
	return &acc, created, nil
}

// Get возвращает аккаунт по Telegram ID.
func (s *Store) Get(ctx context.Context, id int64) (*accounts.Account, error) {
	return getAccount(ctx, s.db, id, false)
}

// CreditAd начисляет награду за рекламу и пишет журнал одной транзакцией.
func (s *Store) CreditAd(ctx context.Context, id int64, reward int64, now time.Time) (*accounts.Account, error) {
	return s.credit(ctx, id, reward, now, true)
}

// Credit начисляет монеты без записи в журнал рекламы.
func (s *Store) Credit(ctx context.Context, id int64, amount int64, now time.Time) (*accounts.Account, error) {
	return s.credit(ctx, id, amount, now, false)
}

func (s *Store) credit(ctx context.Context, id, amount int64, now time.Time, ad bool) (*accounts.Account, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("начало транзакции", err)
	}
	defer tx.Rollback(ctx)

	adInc := 0
	if ad {
		adInc = 1
	}
	// UPDATE берёт блокировку строки, параллельные начисления встают в очередь
	var acc accounts.Account
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, ads_watched = ads_watched + $3, last_active = $4
		WHERE telegram_id = $1
		RETURNING `+accountColumns,
		id, amount, adInc, now,
	).Scan(accountDest(&acc, nil)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: telegram_id=%d", common.ErrAccountNotFound, id)
		}
		return nil, storeErr("начисление", err)
	}

	if ad {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ad_history (telegram_id, reward, watched_at) VALUES ($1, $2, $3)`,
			id, amount, now,
		); err != nil {
			return nil, storeErr("запись журнала рекламы", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("фиксация транзакции", err)
	}
	normalize(&acc)
	return &acc, nil
}

// Inventory возвращает предметы игрока от новых к старым.
func (s *Store) Inventory(ctx context.Context, id int64) ([]accounts.InventoryItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, telegram_id, case_id, prize_id, prize_name, prize_image, obtained_at
		FROM inventory
		WHERE telegram_id = $1
		ORDER BY obtained_at DESC, id DESC
	`, id)
	if err != nil {
		return nil, storeErr("чтение инвентаря", err)
	}
	defer rows.Close()

	var items []accounts.InventoryItem
	for rows.Next() {
		var it accounts.InventoryItem
		if err := rows.Scan(&it.ID, &it.AccountID, &it.CaseID, &it.PrizeID, &it.PrizeName, &it.PrizeImage, &it.ObtainedAt); err != nil {
			return nil, storeErr("чтение инвентаря", err)
		}
		it.ObtainedAt = it.ObtainedAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("чтение инвентаря", err)
	}
	return items, nil
}

// AdHistory возвращает последние limit просмотров рекламы.
func (s *Store) AdHistory(ctx context.Context, id int64, limit int) ([]accounts.AdReward, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, telegram_id, reward, watched_at
		FROM ad_history
		WHERE telegram_id = $1
		ORDER BY watched_at DESC, id DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, storeErr("чтение журнала рекламы", err)
	}
	defer rows.Close()

	var history []accounts.AdReward
	for rows.Next() {
		var r accounts.AdReward
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Reward, &r.WatchedAt); err != nil {
			return nil, storeErr("чтение журнала рекламы", err)
		}
		r.WatchedAt = r.WatchedAt.UTC()
		history = append(history, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("чтение журнала рекламы", err)
	}
	return history, nil
}

// Stats возвращает аккаунт с агрегатами по журналам.
func (s *Store) Stats(ctx context.Context, id int64) (*accounts.Stats, error) {
	acc, err := getAccount(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	st := accounts.Stats{Account: *acc}
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ad_history WHERE telegram_id = $1),
			(SELECT COALESCE(SUM(reward), 0)::BIGINT FROM ad_history WHERE telegram_id = $1),
			(SELECT COUNT(*) FROM inventory WHERE telegram_id = $1)
	`, id).Scan(&st.TotalAds, &st.TotalRewards, &st.TotalOpenings); err != nil {
		return nil, storeErr("подсчёт статистики", err)
	}
	return &st, nil
}

// querier — общее у пула и транзакции.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getAccount читает аккаунт. forUpdate блокирует строку до конца транзакции.
func getAccount(ctx context.Context, q querier, id int64, forUpdate bool) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var acc accounts.Account
	if err := q.QueryRow(ctx, query, id).Scan(accountDest(&acc, nil)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: telegram_id=%d", common.ErrAccountNotFound, id)
		}
		return nil, storeErr("чтение аккаунта", err)
	}
	normalize(&acc)
	return &acc, nil
}

func accountDest(acc *accounts.Account, created *bool) []any {
	dest := []any{
		&acc.ID, &acc.FirstName, &acc.LastName, &acc.Balance, &acc.AdsWatched,
		&acc.CasesOpened, &acc.TotalSpent, &acc.CreatedAt, &acc.LastActive,
	}
	if created != nil {
		dest = append(dest, created)
	}
	return dest
}

func normalize(acc *accounts.Account) {
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.LastActive = acc.LastActive.UTC()
}

var _ accounts.Repository = (*Store)(nil)
