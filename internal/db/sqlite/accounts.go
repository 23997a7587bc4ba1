package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
)

const accountColumns = `telegram_id, first_name, last_name, balance, ads_watched,
	cases_opened, total_spent, created_at, last_active`

// Upsert создаёт аккаунт или отмечает активность существующего.
func (s *Store) Upsert(ctx context.Context, p accounts.Profile, now time.Time) (*accounts.Account, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storeErr("начало транзакции", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (telegram_id, first_name, last_name, created_at, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO NOTHING
	`, p.ID, p.FirstName, p.LastName, toMillis(now), toMillis(now))
	if err != nil {
		return nil, false, storeErr("создание аккаунта", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, storeErr("создание аккаунта", err)
	}
	created := n == 1

	if !created {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET last_active = ? WHERE telegram_id = ?`, toMillis(now), p.ID,
		); err != nil {
			return nil, false, storeErr("обновление активности", err)
		}
	}

	acc, err := getAccount(ctx, tx, p.ID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, storeErr("фиксация транзакции", err)
	}
	return acc, created, nil
}

// Get возвращает аккаунт по Telegram ID.
func (s *Store) Get(ctx context.Context, id int64) (*accounts.Account, error) {
	return getAccount(ctx, s.db, id)
}

// CreditAd начисляет награду за рекламу и пишет журнал.
func (s *Store) CreditAd(ctx context.Context, id int64, reward int64, now time.Time) (*accounts.Account, error) {
	return s.credit(ctx, id, reward, now, true)
}

// Credit начисляет монеты без записи в журнал рекламы.
func (s *Store) Credit(ctx context.Context, id int64, amount int64, now time.Time) (*accounts.Account, error) {
	return s.credit(ctx, id, amount, now, false)
}

func (s *Store) credit(ctx context.Context, id, amount int64, now time.Time, ad bool) (*accounts.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("начало транзакции", err)
	}
	defer tx.Rollback()

	query := `UPDATE accounts SET balance = balance + ?, last_active = ? WHERE telegram_id = ?`
	if ad {
		query = `UPDATE accounts SET balance = balance + ?, ads_watched = ads_watched + 1, last_active = ? WHERE telegram_id = ?`
	}
	res, err := tx.ExecContext(ctx, query, amount, toMillis(now), id)
	if err != nil {
		return nil, storeErr("начисление", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, storeErr("начисление", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: telegram_id=%d", common.ErrAccountNotFound, id)
	}

	if ad {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ad_history (telegram_id, reward, watched_at) VALUES (?, ?, ?)`,
			id, amount, toMillis(now),
		); err != nil {
			return nil, storeErr("запись журнала рекламы", err)
		}
	}

	acc, err := getAccount(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("фиксация транзакции", err)
	}
	return acc, nil
}

// Inventory возвращает предметы игрока от новых к старым.
func (s *Store) Inventory(ctx context.Context, id int64) ([]accounts.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, case_id, prize_id, prize_name, prize_image, obtained_at
		FROM inventory
		WHERE telegram_id = ?
		ORDER BY obtained_at DESC, id DESC
	`, id)
	if err != nil {
		return nil, storeErr("чтение инвентаря", err)
	}
	defer rows.Close()

	var items []accounts.InventoryItem
	for rows.Next() {
		var it accounts.InventoryItem
		var obtained int64
		if err := rows.Scan(&it.ID, &it.AccountID, &it.CaseID, &it.PrizeID, &it.PrizeName, &it.PrizeImage, &obtained); err != nil {
			return nil, storeErr("чтение инвентаря", err)
		}
		it.ObtainedAt = fromMillis(obtained)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("чтение инвентаря", err)
	}
	return items, nil
}

// AdHistory возвращает последние limit просмотров рекламы.
func (s *Store) AdHistory(ctx context.Context, id int64, limit int) ([]accounts.AdReward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, reward, watched_at
		FROM ad_history
		WHERE telegram_id = ?
		ORDER BY watched_at DESC, id DESC
		LIMIT ?
	`, id, limit)
	if err != nil {
		return nil, storeErr("чтение журнала рекламы", err)
	}
	defer rows.Close()

	var history []accounts.AdReward
	for rows.Next() {
		var r accounts.AdReward
		var watched int64
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Reward, &watched); err != nil {
			return nil, storeErr("чтение журнала рекламы", err)
		}
		r.WatchedAt = fromMillis(watched)
		history = append(history, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("чтение журнала рекламы", err)
	}
	return history, nil
}

// Stats возвращает аккаунт с агрегатами по журналам.
func (s *Store) Stats(ctx context.Context, id int64) (*accounts.Stats, error) {
	acc, err := getAccount(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	st := accounts.Stats{Account: *acc}
	if err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ad_history WHERE telegram_id = ?),
			(SELECT IFNULL(SUM(reward), 0) FROM ad_history WHERE telegram_id = ?),
			(SELECT COUNT(*) FROM inventory WHERE telegram_id = ?)
	`, id, id, id).Scan(&st.TotalAds, &st.TotalRewards, &st.TotalOpenings); err != nil {
		return nil, storeErr("подсчёт статистики", err)
	}
	return &st, nil
}

func getAccount(ctx context.Context, q querier, id int64) (*accounts.Account, error) {
	var acc accounts.Account
	var created, active int64
	err := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE telegram_id = ?`, id,
	).Scan(
		&acc.ID, &acc.FirstName, &acc.LastName, &acc.Balance, &acc.AdsWatched,
		&acc.CasesOpened, &acc.TotalSpent, &created, &active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: telegram_id=%d", common.ErrAccountNotFound, id)
		}
		return nil, storeErr("чтение аккаунта", err)
	}
	acc.CreatedAt = fromMillis(created)
	acc.LastActive = fromMillis(active)
	return &acc, nil
}

var _ accounts.Repository = (*Store)(nil)
