// Package storetest — общий набор проверок для хранилищ аккаунтов и сессий.
// Каждый движок (sqlite, postgres) прогоняет его из своих тестов.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
	"serotonyl.ru/lootcase-bot/internal/features/opening"
)

// Store — то, что реализует каждый движок.
type Store interface {
	accounts.Repository
	opening.Store
}

// Opener возвращает пустое хранилище. Закрытие — через t.Cleanup.
type Opener func(t *testing.T) Store

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var testCase = catalog.Case{
	ID:    "bronze",
	Name:  "Бронзовый кейс",
	Price: 50,
	Prizes: []catalog.Prize{
		{ID: "duck", Name: "Утка", Image: "duck.png", Weight: 1},
	},
}

// Run прогоняет все проверки.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"UpsertIsIdempotent", testUpsertIsIdempotent},
		{"GetMissing", testGetMissing},
		{"CreditAd", testCreditAd},
		{"CreditAdMissing", testCreditAdMissing},
		{"ConcurrentCreditAd", testConcurrentCreditAd},
		{"CreditSkipsAdHistory", testCreditSkipsAdHistory},
		{"AdHistoryOrderAndLimit", testAdHistoryOrderAndLimit},
		{"ConsumeSettles", testConsumeSettles},
		{"ConsumeTwice", testConsumeTwice},
		{"ConsumeWithoutConsumeKeepsSession", testConsumeKeepsSession},
		{"ConsumeWithErrorStillDeletes", testConsumeWithErrorStillDeletes},
		{"ConsumeGuardsBalance", testConsumeGuardsBalance},
		{"ConcurrentConsumeSettlesOnce", testConcurrentConsumeSettlesOnce},
		{"SweepSessions", testSweepSessions},
		{"Stats", testStats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func mustUpsert(t *testing.T, s Store, id int64) *accounts.Account {
	t.Helper()
	acc, _, err := s.Upsert(context.Background(), accounts.Profile{ID: id, FirstName: "Игрок"}, base)
	if err != nil {
		t.Fatalf("upsert %d: %v", id, err)
	}
	return acc
}

func mustCredit(t *testing.T, s Store, id, amount int64) {
	t.Helper()
	if _, err := s.Credit(context.Background(), id, amount, base); err != nil {
		t.Fatalf("credit %d: %v", id, err)
	}
}

func mustSession(t *testing.T, s Store, token string, accountID int64, createdAt time.Time) *opening.Session {
	t.Helper()
	sess := &opening.Session{
		Token:        token,
		AccountID:    accountID,
		CaseID:       testCase.ID,
		Prize:        catalog.Prize{ID: "duck", Name: "Утка", Image: "duck.png"},
		WinningIndex: 25,
		CreatedAt:    createdAt,
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func settle(now time.Time) opening.DecideFunc {
	return func(sess *opening.Session, acc *accounts.Account) opening.Settlement {
		return opening.Settle(testCase, sess, acc, now)
	}
}

func testUpsertIsIdempotent(t *testing.T, s Store) {
	ctx := context.Background()

	acc, created, err := s.Upsert(ctx, accounts.Profile{ID: 1, FirstName: "Анна", LastName: "К"}, base)
	if err != nil {
		t.Fatal(err)
	}
	if !created || acc.Balance != 0 || acc.FirstName != "Анна" || acc.LastName != "К" {
		t.Fatalf("first upsert: created=%v acc=%+v", created, acc)
	}

	later := base.Add(time.Hour)
	acc, created, err = s.Upsert(ctx, accounts.Profile{ID: 1, FirstName: "Другое"}, later)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second upsert reported creation")
	}
	if acc.FirstName != "Анна" || acc.LastName != "К" {
		t.Errorf("profile fields changed: %+v", acc)
	}
	if !acc.LastActive.Equal(later) {
		t.Errorf("last_active = %v, want %v", acc.LastActive, later)
	}
	if !acc.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", acc.CreatedAt, base)
	}
}

func testGetMissing(t *testing.T, s Store) {
	if _, err := s.Get(context.Background(), 404); !errors.Is(err, common.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func testCreditAd(t *testing.T, s Store) {
	mustUpsert(t, s, 7)
	acc, err := s.CreditAd(context.Background(), 7, 3, base.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 3 || acc.AdsWatched != 1 {
		t.Errorf("after credit: %+v", acc)
	}
	history, err := s.AdHistory(context.Background(), 7, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Reward != 3 || history[0].AccountID != 7 {
		t.Errorf("history = %+v", history)
	}
}

func testCreditAdMissing(t *testing.T, s Store) {
	if _, err := s.CreditAd(context.Background(), 404, 1, base); !errors.Is(err, common.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	history, err := s.AdHistory(context.Background(), 404, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history written for missing account: %+v", history)
	}
}

func testConcurrentCreditAd(t *testing.T, s Store) {
	mustUpsert(t, s, 9)

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreditAd(context.Background(), 9, 2, base); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("credit: %v", err)
	}

	acc, err := s.Get(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 2*n || acc.AdsWatched != n {
		t.Errorf("balance=%d ads=%d, want %d %d", acc.Balance, acc.AdsWatched, 2*n, n)
	}
}

func testCreditSkipsAdHistory(t *testing.T, s Store) {
	mustUpsert(t, s, 11)
	acc, err := s.Credit(context.Background(), 11, 500, base)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 500 || acc.AdsWatched != 0 {
		t.Errorf("after credit: %+v", acc)
	}
	history, err := s.AdHistory(context.Background(), 11, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history = %+v", history)
	}
	if _, err := s.Credit(context.Background(), 404, 1, base); !errors.Is(err, common.ErrAccountNotFound) {
		t.Errorf("credit missing: err = %v", err)
	}
}

func testAdHistoryOrderAndLimit(t *testing.T, s Store) {
	mustUpsert(t, s, 12)
	for i := 1; i <= 5; i++ {
		if _, err := s.CreditAd(context.Background(), 12, int64(i), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	history, err := s.AdHistory(context.Background(), 12, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("len = %d, want 3", len(history))
	}
	for i, want := range []int64{5, 4, 3} {
		if history[i].Reward != want {
			t.Errorf("history[%d].reward = %d, want %d", i, history[i].Reward, want)
		}
	}
}

func testConsumeSettles(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 20)
	mustCredit(t, s, 20, 50)
	mustSession(t, s, "tok-ok", 20, base)

	now := base.Add(time.Minute)
	out, err := s.ConsumeSession(ctx, "tok-ok", settle(now))
	if err != nil {
		t.Fatal(err)
	}
	if out.Account.Balance != 0 || out.Account.CasesOpened != 1 || out.Account.TotalSpent != 50 {
		t.Errorf("outcome account = %+v", out.Account)
	}
	if out.Item == nil || out.Item.ID == 0 || out.Item.PrizeID != "duck" {
		t.Errorf("outcome item = %+v", out.Item)
	}
	if out.Session.WinningIndex != 25 || out.Session.Prize.Name != "Утка" {
		t.Errorf("outcome session = %+v", out.Session)
	}

	acc, err := s.Get(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 || acc.CasesOpened != 1 || acc.TotalSpent != 50 {
		t.Errorf("stored account = %+v", acc)
	}
	items, err := s.Inventory(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].CaseID != testCase.ID || !items[0].ObtainedAt.Equal(now) {
		t.Errorf("inventory = %+v", items)
	}
}

func testConsumeTwice(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 21)
	mustCredit(t, s, 21, 100)
	mustSession(t, s, "tok-twice", 21, base)

	if _, err := s.ConsumeSession(ctx, "tok-twice", settle(base)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ConsumeSession(ctx, "tok-twice", settle(base)); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("second consume: err = %v, want ErrSessionNotFound", err)
	}
	acc, _ := s.Get(ctx, 21)
	if acc.Balance != 50 {
		t.Errorf("balance = %d, want 50", acc.Balance)
	}
}

func testConsumeKeepsSession(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 22)
	mustCredit(t, s, 22, 100)
	mustSession(t, s, "tok-keep", 22, base)

	_, err := s.ConsumeSession(ctx, "tok-keep", func(*opening.Session, *accounts.Account) opening.Settlement {
		return opening.Settlement{Err: common.ErrSessionMismatch}
	})
	if !errors.Is(err, common.ErrSessionMismatch) {
		t.Fatalf("err = %v, want ErrSessionMismatch", err)
	}
	if _, err := s.ConsumeSession(ctx, "tok-keep", settle(base)); err != nil {
		t.Fatalf("session should still be usable: %v", err)
	}
}

func testConsumeWithErrorStillDeletes(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 23)
	mustCredit(t, s, 23, 49)
	mustSession(t, s, "tok-poor", 23, base)

	// 49 < 50: сессия сгорает без выдачи
	_, err := s.ConsumeSession(ctx, "tok-poor", settle(base))
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	acc, _ := s.Get(ctx, 23)
	if acc.Balance != 49 || acc.CasesOpened != 0 {
		t.Errorf("account changed: %+v", acc)
	}
	if _, err := s.ConsumeSession(ctx, "tok-poor", settle(base)); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("session survived: err = %v", err)
	}
}

func testConsumeGuardsBalance(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 24)
	mustCredit(t, s, 24, 10)
	mustSession(t, s, "tok-guard", 24, base)

	// решение, не проверившее баланс, не должно увести его в минус
	_, err := s.ConsumeSession(ctx, "tok-guard", func(sess *opening.Session, acc *accounts.Account) opening.Settlement {
		return opening.Settlement{
			Consume: true,
			Apply:   true,
			Price:   100,
			Item:    accounts.InventoryItem{CaseID: "x", PrizeID: "p", ObtainedAt: base},
		}
	})
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	acc, _ := s.Get(ctx, 24)
	if acc.Balance != 10 {
		t.Errorf("balance = %d, want 10", acc.Balance)
	}
	items, _ := s.Inventory(ctx, 24)
	if len(items) != 0 {
		t.Errorf("inventory = %+v", items)
	}
	if acc.CasesOpened != 0 || acc.TotalSpent != 0 {
		t.Errorf("stats changed: %+v", acc)
	}
	// как и при обычной нехватке, сессия сгорает
	if _, err := s.ConsumeSession(ctx, "tok-guard", func(*opening.Session, *accounts.Account) opening.Settlement {
		return opening.Settlement{Consume: true}
	}); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("session survived failed guard: err = %v", err)
	}
}

func testConcurrentConsumeSettlesOnce(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 25)
	mustCredit(t, s, 25, 500)
	mustSession(t, s, "tok-race", 25, base)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		notFound int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeSession(ctx, "tok-race", settle(base))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrSessionNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || notFound != n-1 {
		t.Fatalf("ok=%d notFound=%d, want 1 and %d", ok, notFound, n-1)
	}
	acc, _ := s.Get(ctx, 25)
	if acc.Balance != 450 || acc.CasesOpened != 1 {
		t.Errorf("account = %+v", acc)
	}
}

func testSweepSessions(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 26)
	for i := 0; i < 3; i++ {
		mustSession(t, s, fmt.Sprintf("old-%d", i), 26, base.Add(-time.Hour))
	}
	mustSession(t, s, "fresh", 26, base)

	n, err := s.SweepSessions(ctx, base.Add(-10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("swept %d, want 3", n)
	}
	keep := func(*opening.Session, *accounts.Account) opening.Settlement {
		return opening.Settlement{Err: common.ErrSessionMismatch}
	}
	if _, err := s.ConsumeSession(ctx, "old-0", keep); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("old session: err = %v", err)
	}
	if _, err := s.ConsumeSession(ctx, "fresh", keep); !errors.Is(err, common.ErrSessionMismatch) {
		t.Errorf("fresh session: err = %v", err)
	}
}

func testStats(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s, 27)
	for i := 0; i < 4; i++ {
		if _, err := s.CreditAd(ctx, 27, 25, base); err != nil {
			t.Fatal(err)
		}
	}
	mustSession(t, s, "tok-stats", 27, base)
	if _, err := s.ConsumeSession(ctx, "tok-stats", settle(base)); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx, 27)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalAds != 4 || st.TotalRewards != 100 || st.TotalOpenings != 1 {
		t.Errorf("aggregates = %+v", st)
	}
	if st.Balance != 50 || st.TotalSpent != 50 || st.CasesOpened != 1 {
		t.Errorf("account part = %+v", st.Account)
	}
	if _, err := s.Stats(ctx, 404); !errors.Is(err, common.ErrAccountNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}
