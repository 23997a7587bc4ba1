package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/opening"
)

// CreateSession сохраняет сессию открытия.
func (s *Store) CreateSession(ctx context.Context, sess *opening.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opening_sessions
			(token, telegram_id, case_id, prize_id, prize_name, prize_image, winning_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.Token, sess.AccountID, sess.CaseID,
		sess.Prize.ID, sess.Prize.Name, sess.Prize.Image,
		sess.WinningIndex, toMillis(sess.CreatedAt),
	)
	if err != nil {
		return storeErr("создание сессии открытия", err)
	}
	return nil
}

// ConsumeSession гасит сессию и применяет расчёт одной транзакцией.
// Единственное соединение гарантирует, что два commit по одному токену
// не пройдут одновременно: второй увидит, что сессии уже нет.
func (s *Store) ConsumeSession(ctx context.Context, token string, decide opening.DecideFunc) (*opening.Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("начало транзакции", err)
	}
	defer tx.Rollback()

	sess, err := getSession(ctx, tx, token)
	if err != nil {
		return nil, err
	}
	acc, err := getAccount(ctx, tx, sess.AccountID)
	if err != nil {
		return nil, err
	}

	st := decide(sess, acc)
	if !st.Consume {
		return nil, st.Err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM opening_sessions WHERE token = ?`, token); err != nil {
		return nil, storeErr("удаление сессии открытия", err)
	}

	var item *accounts.InventoryItem
	if st.Apply {
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance = balance - ?, total_spent = total_spent + ?,
			    cases_opened = cases_opened + 1, last_active = ?
			WHERE telegram_id = ? AND balance >= ?
		`, st.Price, st.Price, toMillis(st.Item.ObtainedAt), acc.ID, st.Price)
		if err != nil {
			return nil, storeErr("списание за кейс", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, storeErr("списание за кейс", err)
		} else if n == 0 {
			// баланс не прошёл проверку: сессия сгорает так же, как при нехватке в Settle
			st = opening.Settlement{
				Consume: true,
				Err:     fmt.Errorf("%w: telegram_id=%d", common.ErrInsufficientFunds, acc.ID),
			}
		}
	}
	if st.Apply {
		it := st.Item
		res, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (telegram_id, case_id, prize_id, prize_name, prize_image, obtained_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, acc.ID, it.CaseID, it.PrizeID, it.PrizeName, it.PrizeImage, toMillis(it.ObtainedAt))
		if err != nil {
			return nil, storeErr("запись в инвентарь", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return nil, storeErr("запись в инвентарь", err)
		}
		it.AccountID = acc.ID
		item = &it
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("фиксация транзакции", err)
	}
	if st.Err != nil {
		return nil, st.Err
	}

	updated := st.ApplyTo(*acc)
	return &opening.Outcome{Session: sess, Account: &updated, Item: item}, nil
}

// SweepSessions удаляет сессии, созданные раньше before.
func (s *Store) SweepSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM opening_sessions WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, storeErr("очистка сессий открытия", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("очистка сессий открытия", err)
	}
	return n, nil
}

func getSession(ctx context.Context, q querier, token string) (*opening.Session, error) {
	var sess opening.Session
	var created int64
	err := q.QueryRowContext(ctx, `
		SELECT token, telegram_id, case_id, prize_id, prize_name, prize_image, winning_index, created_at
		FROM opening_sessions
		WHERE token = ?
	`, token).Scan(
		&sess.Token, &sess.AccountID, &sess.CaseID,
		&sess.Prize.ID, &sess.Prize.Name, &sess.Prize.Image,
		&sess.WinningIndex, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, storeErr("чтение сессии открытия", err)
	}
	sess.CreatedAt = fromMillis(created)
	return &sess, nil
}

var _ opening.Store = (*Store)(nil)
