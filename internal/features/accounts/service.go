// Package accounts — service.go содержит бизнес-логику аккаунтов:
// регистрацию, начисление за рекламу, профиль и статистику.
package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/common"
)

const (
	DefaultAdHistoryLimit = 10
	MaxAdHistoryLimit     = 100
)

// Service управляет аккаунтами игроков.
type Service struct {
	repo     Repository       // Хранилище аккаунтов
	adReward int64            // Награда за одну рекламу
	now      func() time.Time // Часы, в тестах подменяются
}

// NewService создаёт сервис аккаунтов. adReward должен быть > 0.
func NewService(repo Repository, adReward int64) *Service {
	return &Service{
		repo:     repo,
		adReward: adReward,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Init регистрирует игрока или отмечает его активность.
// Повторный вызов не меняет имя и баланс. Второй результат — аккаунт только что создан.
func (s *Service) Init(ctx context.Context, p Profile) (*Account, bool, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.ID <= 0 || p.FirstName == "" {
		return nil, false, fmt.Errorf("%w: нужны telegram_id и first_name", common.ErrValidation)
	}

	acc, created, err := s.repo.Upsert(ctx, p, s.now())
	if err != nil {
		return nil, false, err
	}
	if created {
		log.WithFields(log.Fields{
			"telegram_id": acc.ID,
			"first_name":  acc.FirstName,
		}).Info("Новый игрок зарегистрирован")
	}
	return acc, created, nil
}

// CreditAdWatch начисляет награду за досмотренную рекламу.
func (s *Service) CreditAdWatch(ctx context.Context, id int64) (*Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: нужен telegram_id", common.ErrValidation)
	}
	acc, err := s.repo.CreditAd(ctx, id, s.adReward, s.now())
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"telegram_id": id,
		"reward":      s.adReward,
		"balance":     acc.Balance,
	}).Debug("Начислено за рекламу")
	return acc, nil
}

// Credit начисляет монеты вне рекламы. Используется админским путём.
func (s *Service) Credit(ctx context.Context, id int64, amount int64) (*Account, error) {
	if id <= 0 || amount <= 0 {
		return nil, fmt.Errorf("%w: нужны telegram_id и положительная сумма", common.ErrValidation)
	}
	return s.repo.Credit(ctx, id, amount, s.now())
}

// Get возвращает аккаунт без инвентаря.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: нужен telegram_id", common.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Profile возвращает аккаунт вместе с инвентарём.
func (s *Service) Profile(ctx context.Context, id int64) (*ProfileView, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Inventory(ctx, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []InventoryItem{}
	}
	return &ProfileView{Account: *acc, Inventory: items}, nil
}

// Stats возвращает аккаунт с агрегатами по журналам.
func (s *Service) Stats(ctx context.Context, id int64) (*Stats, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: нужен telegram_id", common.ErrValidation)
	}
	return s.repo.Stats(ctx, id)
}

// AdHistory возвращает последние просмотры рекламы.
// limit <= 0 означает значение по умолчанию, сверху ограничен MaxAdHistoryLimit.
func (s *Service) AdHistory(ctx context.Context, id int64, limit int) ([]AdReward, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: нужен telegram_id", common.ErrValidation)
	}
	history, err := s.repo.AdHistory(ctx, id, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []AdReward{}
	}
	return history, nil
}

// ClampLimit приводит limit к диапазону 1..MaxAdHistoryLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultAdHistoryLimit
	case limit > MaxAdHistoryLimit:
		return MaxAdHistoryLimit
	}
	return limit
}
