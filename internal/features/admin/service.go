// Package admin — service.go проверяет пароль администратора
// и начисляет баланс для тестирования.
package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
)

// Crediter начисляет монеты на счёт.
type Crediter interface {
	Credit(ctx context.Context, id int64, amount int64) (*accounts.Account, error)
}

// Service обслуживает админские операции.
type Service struct {
	accounts Crediter
	hash     string

	mu       sync.Mutex
	failures map[string][]time.Time // неудачные попытки по ключу (IP)
	now      func() time.Time
}

// NewService создаёт сервис. Пустой hash выключает админку.
func NewService(accs Crediter, passwordHash string) *Service {
	return &Service{
		accounts: accs,
		hash:     strings.TrimSpace(passwordHash),
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Enabled сообщает, задан ли хеш пароля.
func (s *Service) Enabled() bool {
	return s.hash != ""
}

// VerifyPassword проверяет пароль с учётом блокировки.
// MaxFailedAttempts неудачных попыток за LockoutWindow блокируют ключ до конца окна.
// Попытка резервируется до проверки хеша, поэтому параллельные запросы
// не проходят мимо лимита.
func (s *Service) VerifyPassword(key, password string) error {
	if !s.Enabled() {
		return common.ErrUnauthorized
	}

	n, ok := s.reserveAttempt(key)
	if !ok {
		return common.ErrTooManyAttempts
	}

	if password == "" || !verifyArgon2id(password, s.hash) {
		log.WithFields(log.Fields{
			"key":      key,
			"failures": n,
		}).Warn("Неверный пароль администратора")
		return common.ErrUnauthorized
	}

	// успех обнуляет счётчик вместе со своей резервацией
	s.mu.Lock()
	delete(s.failures, key)
	s.mu.Unlock()
	return nil
}

// AddBalance проверяет пароль и начисляет amount монет.
func (s *Service) AddBalance(ctx context.Context, key, password string, req AddBalanceRequest) (*accounts.Account, error) {
	if err := s.VerifyPassword(key, password); err != nil {
		return nil, err
	}

	acc, err := s.accounts.Credit(ctx, req.TelegramID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("начисление %d: %w", req.TelegramID, err)
	}

	log.WithFields(log.Fields{
		"telegram_id": req.TelegramID,
		"amount":      req.Amount,
		"balance":     acc.Balance,
	}).Info("Админ начислил баланс")
	return acc, nil
}

// reserveAttempt в одной критической секции проверяет лимит и записывает попытку.
// Неудачная попытка так и остаётся записанной.
func (s *Service) reserveAttempt(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.prune(key)
	if len(recent) >= MaxFailedAttempts {
		return len(recent), false
	}
	recent = append(recent, s.now())
	s.failures[key] = recent
	return len(recent), true
}

// prune выбрасывает попытки старше окна. Вызывать под mu.
func (s *Service) prune(key string) []time.Time {
	cutoff := s.now().Add(-LockoutWindow)
	kept := s.failures[key][:0]
	for _, t := range s.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, key)
		return nil
	}
	s.failures[key] = kept
	return kept
}
