package opening

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

// DefaultSessionTTL — сколько живёт неподтверждённый розыгрыш.
const DefaultSessionTTL = 10 * time.Minute

// tokenBytes — 256 бит случайности в токене.
const tokenBytes = 32

// SettleFunc решает судьбу сессии, уже прошедшей проверки владельца и TTL.
type SettleFunc func(s *Session, acc *accounts.Account, now time.Time) Settlement

// Sessions выдаёт и гасит одноразовые сессии открытия.
// Состояние сессии: создана → погашена, либо создана → истекла.
type Sessions struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions создаёт менеджер сессий. ttl <= 0 означает DefaultSessionTTL.
func NewSessions(store Store, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		store: store,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TTL возвращает время жизни сессии.
func (m *Sessions) TTL() time.Duration { return m.ttl }

// Create сохраняет сессию с разыгранным призом и возвращает её.
func (m *Sessions) Create(ctx context.Context, accountID int64, caseID string, prize catalog.Prize, winningIndex int) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	s := &Session{
		Token:        token,
		AccountID:    accountID,
		CaseID:       caseID,
		Prize:        prize,
		WinningIndex: winningIndex,
		CreatedAt:    m.now(),
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Consume гасит сессию и выполняет settle в той же транзакции.
//
//   - токена нет или он уже погашен: common.ErrSessionNotFound
//   - сессия выписана на другой аккаунт или кейс: common.ErrSessionMismatch, сессия остаётся
//   - сессия старше TTL: common.ErrSessionExpired, сессия удаляется
//
// Повторять Consume после успеха нельзя: второй вызов вернёт ErrSessionNotFound.
func (m *Sessions) Consume(ctx context.Context, token string, accountID int64, caseID string, settle SettleFunc) (*Outcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: нужен token", common.ErrValidation)
	}

	now := m.now()
	return m.store.ConsumeSession(ctx, token, func(s *Session, acc *accounts.Account) Settlement {
		if s.AccountID != accountID || s.CaseID != caseID {
			log.WithFields(log.Fields{
				"telegram_id":   accountID,
				"case_id":       caseID,
				"session_owner": s.AccountID,
				"session_case":  s.CaseID,
			}).Warn("Попытка погасить чужую сессию открытия")
			return Settlement{Err: common.ErrSessionMismatch}
		}
		if now.Sub(s.CreatedAt) > m.ttl {
			return Settlement{Consume: true, Err: common.ErrSessionExpired}
		}
		return settle(s, acc, now)
	})
}

// Sweep удаляет истёкшие сессии. Для корректности не обязателен:
// Consume сам проверяет возраст сессии.
func (m *Sessions) Sweep(ctx context.Context) (int64, error) {
	return m.store.SweepSessions(ctx, m.now().Add(-m.ttl))
}

// newToken генерирует непредсказуемый токен сессии.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
