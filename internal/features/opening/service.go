// Package opening — service.go связывает каталог, розыгрыш, ленту и сессии
// в операции prepare и commit.
package opening

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
	"serotonyl.ru/lootcase-bot/internal/features/roulette"
)

// AccountGetter — чтение аккаунта для проверки баланса на prepare.
type AccountGetter interface {
	Get(ctx context.Context, id int64) (*accounts.Account, error)
}

// Options — параметры ленты.
type Options struct {
	StripLength  int
	WinningIndex int
}

// Service выполняет открытие кейсов.
type Service struct {
	catalog  *catalog.Catalog
	accounts AccountGetter
	sessions *Sessions
	opts     Options

	rngMu sync.Mutex // rand.Rand с состоянием небезопасен для горутин
	rng   *rand.Rand
}

// NewService создаёт сервис открытия. rng == nil означает криптостойкий генератор.
func NewService(cat *catalog.Catalog, accs AccountGetter, sessions *Sessions, opts Options, rng *rand.Rand) *Service {
	// без длины ленты берём стандартную раскладку целиком: 51 слот, выигрыш в 25-м
	if opts.StripLength <= 0 {
		opts.StripLength = roulette.DefaultStripLength
		opts.WinningIndex = roulette.DefaultWinningIndex
	}
	if opts.WinningIndex < 0 || opts.WinningIndex >= opts.StripLength {
		opts.WinningIndex = opts.StripLength / 2
	}
	if rng == nil {
		rng = roulette.NewRand()
	}
	return &Service{
		catalog:  cat,
		accounts: accs,
		sessions: sessions,
		opts:     opts,
		rng:      rng,
	}
}

// ListCases возвращает витрину кейсов без таблиц призов.
func (s *Service) ListCases() []catalog.Summary {
	return s.catalog.Summaries()
}

// Prepare разыгрывает приз и сохраняет сессию.
// При ошибке сессия не создаётся.
func (s *Service) Prepare(ctx context.Context, accountID int64, caseID string) (*PrepareResult, error) {
	caseID = strings.TrimSpace(caseID)
	if accountID <= 0 || caseID == "" {
		return nil, fmt.Errorf("%w: нужны telegram_id и case_id", common.ErrValidation)
	}

	cs, err := s.catalog.Case(caseID)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Balance < cs.Price {
		return nil, fmt.Errorf("%w: нужно %d, есть %d", common.ErrInsufficientFunds, cs.Price, acc.Balance)
	}

	prize, strip, err := s.spin(cs)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, accountID, cs.ID, prize, s.opts.WinningIndex)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"telegram_id": accountID,
		"case_id":     cs.ID,
		"prize_id":    prize.ID,
	}).Debug("Кейс подготовлен к открытию")

	return &PrepareResult{
		Token:        sess.Token,
		Sequence:     strip,
		WinningIndex: sess.WinningIndex,
		ExpiresAt:    sess.CreatedAt.Add(s.sessions.TTL()),
	}, nil
}

func (s *Service) spin(cs catalog.Case) (catalog.Prize, []catalog.Prize, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	prize, err := roulette.Draw(s.rng, cs.Prizes)
	if err != nil {
		return catalog.Prize{}, nil, err
	}
	strip, err := roulette.Generate(s.rng, prize, cs.Prizes, s.opts.StripLength, s.opts.WinningIndex)
	if err != nil {
		return catalog.Prize{}, nil, err
	}
	return prize, strip, nil
}

// Commit гасит сессию и выдаёт приз.
func (s *Service) Commit(ctx context.Context, accountID int64, caseID, token string) (*CommitResult, error) {
	caseID = strings.TrimSpace(caseID)
	if accountID <= 0 || caseID == "" {
		return nil, fmt.Errorf("%w: нужны telegram_id и case_id", common.ErrValidation)
	}
	cs, err := s.catalog.Case(caseID)
	if err != nil {
		return nil, err
	}

	out, err := s.sessions.Consume(ctx, token, accountID, cs.ID, func(sess *Session, acc *accounts.Account, now time.Time) Settlement {
		return Settle(cs, sess, acc, now)
	})
	if err != nil {
		fields := log.Fields{"telegram_id": accountID, "case_id": cs.ID}
		switch {
		case errors.Is(err, common.ErrInsufficientFunds):
			// розыгрыш сгорел, повтора не будет
			log.WithFields(fields).Warn("Сессия открытия погашена без выдачи: не хватило монет")
		case errors.Is(err, common.ErrSessionExpired):
			log.WithFields(fields).Info("Сессия открытия истекла")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"telegram_id": accountID,
		"case_id":     cs.ID,
		"prize_id":    out.Session.Prize.ID,
		"price":       cs.Price,
		"balance":     out.Account.Balance,
	}).Info("Кейс открыт")

	return &CommitResult{
		Prize:        out.Session.Prize,
		WinningIndex: out.Session.WinningIndex,
		Account:      out.Account,
		Item:         out.Item,
	}, nil
}
