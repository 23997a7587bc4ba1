// Package ratelimit ограничивает частоту запросов по ключу
// (IP клиента для HTTP, user ID для бота).
// Используется алгоритм скользящего окна.
package ratelimit

import (
	"sync"
	"time"
)

// cleanupInterval — как часто выбрасываются ключи без свежих запросов.
const cleanupInterval = 5 * time.Minute

// Limiter пропускает не больше limit запросов на ключ за window.
type Limiter[K comparable] struct {
	mu       sync.Mutex
	requests map[K][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New создаёт лимитер и запускает фоновую очистку.
// Close нужно вызвать на shutdown, иначе горутина очистки будет жить вечно.
func New[K comparable](limit int, window time.Duration) *Limiter[K] {
	rl := &Limiter[K]{
		requests: make(map[K][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Close останавливает фоновую горутину очистки.
func (rl *Limiter[K]) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow отмечает запрос и сообщает, укладывается ли он в лимит.
// limit <= 0 отключает ограничение.
func (rl *Limiter[K]) Allow(key K) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.recent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

// recent оставляет отметки позже cutoff. Переиспользует исходный массив.
func (rl *Limiter[K]) recent(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (rl *Limiter[K]) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *Limiter[K]) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, times := range rl.requests {
		recent := rl.recent(times, cutoff)
		if len(recent) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = recent
		}
	}
}
