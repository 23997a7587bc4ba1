package accounts_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/db/sqlite"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
)

func newService(t *testing.T, reward int64) *accounts.Service {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return accounts.NewService(store, reward)
}

func TestInit_Idempotent(t *testing.T) {
	svc := newService(t, 1)
	ctx := context.Background()

	acc, created, err := svc.Init(ctx, accounts.Profile{ID: 42, FirstName: "  Мария ", LastName: "Ив"})
	if err != nil {
		t.Fatal(err)
	}
	if !created || acc.FirstName != "Мария" || acc.Balance != 0 {
		t.Fatalf("first init: created=%v acc=%+v", created, acc)
	}

	if _, err := svc.CreditAdWatch(ctx, 42); err != nil {
		t.Fatal(err)
	}

	acc, created, err = svc.Init(ctx, accounts.Profile{ID: 42, FirstName: "Новое имя"})
	if err != nil {
		t.Fatal(err)
	}
	if created || acc.FirstName != "Мария" || acc.LastName != "Ив" || acc.Balance != 1 {
		t.Errorf("second init: created=%v acc=%+v", created, acc)
	}
}

func TestInit_Validation(t *testing.T) {
	svc := newService(t, 1)
	tests := []accounts.Profile{
		{ID: 0, FirstName: "Имя"},
		{ID: -5, FirstName: "Имя"},
		{ID: 1, FirstName: "   "},
	}
	for _, p := range tests {
		if _, _, err := svc.Init(context.Background(), p); !errors.Is(err, common.ErrValidation) {
			t.Errorf("Init(%+v): err = %v, want ErrValidation", p, err)
		}
	}
}

func TestCreditAdWatch_UnknownAccount(t *testing.T) {
	svc := newService(t, 1)
	if _, err := svc.CreditAdWatch(context.Background(), 777); !errors.Is(err, common.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if _, err := svc.CreditAdWatch(context.Background(), 0); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreditAdWatch_Concurrent(t *testing.T) {
	const reward = 3
	svc := newService(t, reward)
	ctx := context.Background()
	if _, _, err := svc.Init(ctx, accounts.Profile{ID: 5, FirstName: "Ли"}); err != nil {
		t.Fatal(err)
	}

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreditAdWatch(ctx, 5); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	st, err := svc.Stats(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if st.Balance != n*reward || st.AdsWatched != n || st.TotalAds != n || st.TotalRewards != n*reward {
		t.Errorf("stats = %+v", st)
	}
}

func TestProfile_EmptyInventory(t *testing.T) {
	svc := newService(t, 1)
	ctx := context.Background()
	if _, _, err := svc.Init(ctx, accounts.Profile{ID: 8, FirstName: "Ян"}); err != nil {
		t.Fatal(err)
	}
	view, err := svc.Profile(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if view.Inventory == nil || len(view.Inventory) != 0 {
		t.Errorf("inventory = %#v, want empty non-nil slice", view.Inventory)
	}
	if _, err := svc.Profile(ctx, 9); !errors.Is(err, common.ErrAccountNotFound) {
		t.Errorf("missing profile: err = %v", err)
	}
}

func TestAdHistory_Limit(t *testing.T) {
	svc := newService(t, 1)
	ctx := context.Background()
	if _, _, err := svc.Init(ctx, accounts.Profile{ID: 3, FirstName: "Ив"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 15; i++ {
		if _, err := svc.CreditAdWatch(ctx, 3); err != nil {
			t.Fatal(err)
		}
	}

	history, err := svc.AdHistory(ctx, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != accounts.DefaultAdHistoryLimit {
		t.Errorf("default limit: len = %d", len(history))
	}
	history, err = svc.AdHistory(ctx, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Errorf("limit 4: len = %d", len(history))
	}

	empty, err := svc.AdHistory(ctx, 99, 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown account history = %#v", empty)
	}
}

func TestCredit_Validation(t *testing.T) {
	svc := newService(t, 1)
	if _, err := svc.Credit(context.Background(), 1, 0); !errors.Is(err, common.ErrValidation) {
		t.Errorf("zero amount: err = %v", err)
	}
	if _, err := svc.Credit(context.Background(), 1, 10); !errors.Is(err, common.ErrAccountNotFound) {
		t.Errorf("missing account: err = %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 10}, {0, 10}, {1, 1}, {50, 50}, {100, 100}, {101, 100}, {1 << 20, 100},
	}
	for _, tt := range tests {
		if got := accounts.ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
