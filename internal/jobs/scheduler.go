// Package jobs управляет фоновыми задачами (cron).
// scheduler.go по расписанию удаляет протухшие сессии открытия.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper удаляет сессии старше TTL.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler создаёт планировщик. schedule — cron-выражение
// или дескриптор вида "@every 1m".
func NewScheduler(sweeper Sweeper, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("некорректное расписание %q: %w", schedule, err)
	}
	return &Scheduler{
		// SkipIfStillRunning: медленная очистка не наслаивается сама на себя
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper:  sweeper,
		schedule: schedule,
	}, nil
}

// Start запускает задачи. Они работают, пока не вызван Stop или не отменён ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("ошибка регистрации задачи очистки: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) sweep(ctx context.Context) {
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки сессий")
		return
	}
	if n > 0 {
		log.WithField("deleted", n).Info("[CRON] Удалены протухшие сессии")
	}
}
