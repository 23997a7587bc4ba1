package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/opening"
)

// CreateSession сохраняет сессию открытия.
func (s *Store) CreateSession(ctx context.Context, sess *opening.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO opening_sessions
			(token, telegram_id, case_id, prize_id, prize_name, prize_image, winning_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		sess.Token, sess.AccountID, sess.CaseID,
		sess.Prize.ID, sess.Prize.Name, sess.Prize.Image,
		sess.WinningIndex, sess.CreatedAt,
	)
	if err != nil {
		return storeErr("создание сессии открытия", err)
	}
	return nil
}

// ConsumeSession гасит сессию и применяет расчёт одной транзакцией.
//
// Порядок блокировок всегда: сессия, потом аккаунт. Второй commit по тому же
// токену ждёт на строке сессии и после фиксации первого её уже не находит.
func (s *Store) ConsumeSession(ctx context.Context, token string, decide opening.DecideFunc) (*opening.Outcome, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("начало транзакции", err)
	}
	defer tx.Rollback(ctx)

	var sess opening.Session
	err = tx.QueryRow(ctx, `
		SELECT token, telegram_id, case_id, prize_id, prize_name, prize_image, winning_index, created_at
		FROM opening_sessions
		WHERE token = $1
		FOR UPDATE
	`, token).Scan(
		&sess.Token, &sess.AccountID, &sess.CaseID,
		&sess.Prize.ID, &sess.Prize.Name, &sess.Prize.Image,
		&sess.WinningIndex, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, storeErr("чтение сессии открытия", err)
	}
	sess.CreatedAt = sess.CreatedAt.UTC()

	acc, err := getAccount(ctx, tx, sess.AccountID, true)
	if err != nil {
		return nil, err
	}

	st := decide(&sess, acc)
	if !st.Consume {
		return nil, st.Err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM opening_sessions WHERE token = $1`, token); err != nil {
		return nil, storeErr("удаление сессии открытия", err)
	}

	var item *accounts.InventoryItem
	if st.Apply {
		tag, err := tx.Exec(ctx, `
			UPDATE accounts
			SET balance = balance - $2, total_spent = total_spent + $2,
			    cases_opened = cases_opened + 1, last_active = $3
			WHERE telegram_id = $1 AND balance >= $2
		`, acc.ID, st.Price, st.Item.ObtainedAt)
		if err != nil {
			return nil, storeErr("списание за кейс", err)
		}
		if tag.RowsAffected() == 0 {
			// баланс не прошёл проверку: сессия сгорает так же, как при нехватке в Settle
			st = opening.Settlement{
				Consume: true,
				Err:     fmt.Errorf("%w: telegram_id=%d", common.ErrInsufficientFunds, acc.ID),
			}
		}
	}
	if st.Apply {
		it := st.Item
		it.AccountID = acc.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO inventory (telegram_id, case_id, prize_id, prize_name, prize_image, obtained_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, acc.ID, it.CaseID, it.PrizeID, it.PrizeName, it.PrizeImage, it.ObtainedAt).Scan(&it.ID); err != nil {
			return nil, storeErr("запись в инвентарь", err)
		}
		item = &it
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("фиксация транзакции", err)
	}
	if st.Err != nil {
		return nil, st.Err
	}

	updated := st.ApplyTo(*acc)
	return &opening.Outcome{Session: &sess, Account: &updated, Item: item}, nil
}

// SweepSessions удаляет сессии, созданные раньше before.
func (s *Store) SweepSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM opening_sessions WHERE created_at < $1`, before)
	if err != nil {
		return 0, storeErr("очистка сессий открытия", err)
	}
	return tag.RowsAffected(), nil
}

var _ opening.Store = (*Store)(nil)
