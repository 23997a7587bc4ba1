package opening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
)

// memStore — хранилище в памяти для тестов сервиса.
// Один мьютекс играет роль транзакции.
type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]*accounts.Account
	sessions  map[string]*Session
	inventory []accounts.InventoryItem
	failNext  error // вернуть эту ошибку из следующей записи
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]*accounts.Account),
		sessions: make(map[string]*Session),
	}
}

func (m *memStore) addAccount(id, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = &accounts.Account{ID: id, FirstName: "Игрок", Balance: balance}
}

func (m *memStore) account(id int64) accounts.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memStore) Get(_ context.Context, id int64) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: telegram_id=%d", common.ErrAccountNotFound, id)
	}
	cp := *acc
	return &cp, nil
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	cp := *s
	m.sessions[s.Token] = &cp
	return nil
}

func (m *memStore) ConsumeSession(_ context.Context, token string, decide DecideFunc) (*Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	acc, ok := m.accounts[sess.AccountID]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	cpSess, cpAcc := *sess, *acc

	st := decide(&cpSess, &cpAcc)
	if !st.Consume {
		return nil, st.Err
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}
	delete(m.sessions, token)
	if st.Apply && acc.Balance < st.Price {
		return nil, common.ErrInsufficientFunds
	}

	var item *accounts.InventoryItem
	if st.Apply {
		*acc = st.ApplyTo(*acc)
		it := st.Item
		it.ID = int64(len(m.inventory) + 1)
		m.inventory = append(m.inventory, it)
		item = &it
	}
	if st.Err != nil {
		return nil, st.Err
	}
	updated := *acc
	return &Outcome{Session: &cpSess, Account: &updated, Item: item}, nil
}

func (m *memStore) SweepSessions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if s.CreatedAt.Before(before) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}
