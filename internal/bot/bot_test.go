package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{Text: p.Text}, nil
}

func (f *fakeSender) last(t *testing.T) *telego.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeAccounts struct {
	mu    sync.Mutex
	accs  map[int64]*accounts.Account
	err   error
	inits int
}

func (f *fakeAccounts) Init(_ context.Context, p accounts.Profile) (*accounts.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.err != nil {
		return nil, false, f.err
	}
	if acc, ok := f.accs[p.ID]; ok {
		return acc, false, nil
	}
	acc := &accounts.Account{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
	f.accs[p.ID] = acc
	return acc, true, nil
}

func (f *fakeAccounts) Get(_ context.Context, id int64) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accs[id]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return acc, nil
}

type fakeCases []catalog.Summary

func (f fakeCases) Summaries() []catalog.Summary { return f }

func newTestBot(t *testing.T) (*Bot, *fakeSender, *fakeAccounts) {
	t.Helper()
	sender := &fakeSender{}
	accs := &fakeAccounts{accs: map[int64]*accounts.Account{}}
	cases := fakeCases{
		{ID: "free", Name: "Бесплатный", IsFree: true},
		{ID: "gold", Name: "Золотой", Price: 150},
	}
	b := newBot(sender, accs, cases, Options{
		MiniAppURL:      "https://app.example/",
		RateLimit:       100,
		RateLimitWindow: time.Minute,
	})
	t.Cleanup(b.rateLimiter.Close)
	return b, sender, accs
}

func privateText(userID int64, text string) telego.Update {
	return telego.Update{Message: &telego.Message{
		From: &telego.User{ID: userID, FirstName: "Оля", Username: "olya"},
		Chat: telego.Chat{ID: userID, Type: telego.ChatTypePrivate},
		Text: text,
	}}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		cmd  string
		args []string
		ok   bool
	}{
		{"/start", "start", nil, true},
		{"  /Balance  ", "balance", nil, true},
		{"/start@lootcase_bot ref42", "start", []string{"ref42"}, true},
		{"/", "", nil, false},
		{"/@bot", "", nil, false},
		{"привет", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := ParseCommand(tt.in)
		if cmd != tt.cmd || ok != tt.ok || len(args) != len(tt.args) {
			t.Errorf("ParseCommand(%q) = %q %v %v", tt.in, cmd, args, ok)
			continue
		}
		for i := range args {
			if args[i] != tt.args[i] {
				t.Errorf("ParseCommand(%q) args = %v", tt.in, args)
			}
		}
	}
}

func TestStart_RegistersAndSendsWebAppButton(t *testing.T) {
	b, sender, accs := newTestBot(t)

	b.HandleUpdate(context.Background(), privateText(42, "/start"))

	if _, ok := accs.accs[42]; !ok {
		t.Fatal("account not created")
	}
	msg := sender.last(t)
	if msg.ChatID.ID != 42 || !strings.HasPrefix(msg.Text, "Привет, Оля!") {
		t.Errorf("message = %d %q", msg.ChatID.ID, msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 1 {
		t.Fatalf("reply markup = %#v", msg.ReplyMarkup)
	}
	btn := kb.InlineKeyboard[0][0]
	if btn.WebApp == nil || btn.WebApp.URL != "https://app.example/" {
		t.Errorf("button = %+v", btn)
	}

	b.HandleUpdate(context.Background(), privateText(42, "/start"))
	if got := sender.last(t).Text; !strings.HasPrefix(got, "С возвращением") {
		t.Errorf("second /start = %q", got)
	}
}

func TestStart_InitError(t *testing.T) {
	b, sender, accs := newTestBot(t)
	accs.err = errors.New("db down")

	b.HandleUpdate(context.Background(), privateText(1, "/start"))
	if got := sender.last(t).Text; !strings.Contains(got, "попробуйте позже") {
		t.Errorf("text = %q", got)
	}
}

func TestBalance(t *testing.T) {
	b, sender, accs := newTestBot(t)

	b.HandleUpdate(context.Background(), privateText(5, "/balance"))
	if got := sender.last(t).Text; !strings.Contains(got, "/start") {
		t.Errorf("unknown account reply = %q", got)
	}

	accs.accs[5] = &accounts.Account{ID: 5, Balance: 2350, AdsWatched: 12, CasesOpened: 3, TotalSpent: 150}
	b.HandleUpdate(context.Background(), privateText(5, "/balance"))
	got := sender.last(t).Text
	for _, want := range []string{"2 350 монет", "12", "3 кейса", "150 монет"} {
		if !strings.Contains(got, want) {
			t.Errorf("balance reply %q missing %q", got, want)
		}
	}
}

func TestCases(t *testing.T) {
	b, sender, _ := newTestBot(t)

	b.HandleUpdate(context.Background(), privateText(5, "/cases"))
	got := sender.last(t).Text
	if !strings.Contains(got, "Бесплатный: бесплатно") || !strings.Contains(got, "Золотой: 150 монет") {
		t.Errorf("cases reply = %q", got)
	}
}

func TestHandleUpdate_Ignored(t *testing.T) {
	b, sender, _ := newTestBot(t)

	group := privateText(5, "/start")
	group.Message.Chat = telego.Chat{ID: -100, Type: telego.ChatTypeGroup}

	for _, upd := range []telego.Update{
		{},
		privateText(5, "просто текст"),
		privateText(5, "/unknown"),
		group,
	} {
		b.HandleUpdate(context.Background(), upd)
	}
	if n := sender.count(); n != 0 {
		t.Errorf("sent %d messages, want 0", n)
	}
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	sender := &fakeSender{}
	b := newBot(sender, &fakeAccounts{accs: map[int64]*accounts.Account{}}, fakeCases{}, Options{
		RateLimit:       2,
		RateLimitWindow: time.Minute,
	})
	defer b.rateLimiter.Close()

	for i := 0; i < 5; i++ {
		b.HandleUpdate(context.Background(), privateText(9, "/help"))
	}
	if n := sender.count(); n != 2 {
		t.Errorf("sent %d, want 2", n)
	}
}

func TestHandleUpdate_SendErrorIsLogged(t *testing.T) {
	b, sender, _ := newTestBot(t)
	sender.err = errors.New("telegram down")

	b.HandleUpdate(context.Background(), privateText(5, "/help"))
	if sender.count() != 1 {
		t.Error("send was not attempted")
	}
}

func TestDispatch_HandlesUntilChannelClosed(t *testing.T) {
	b, sender, _ := newTestBot(t)

	updates := make(chan telego.Update, 3)
	for i := int64(1); i <= 3; i++ {
		updates <- privateText(i, "/help")
	}
	close(updates)

	if err := b.dispatch(context.Background(), updates); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// dispatch дожидается обработчиков перед выходом
	if n := sender.count(); n != 3 {
		t.Errorf("sent %d, want 3", n)
	}
}

func TestDispatch_StopsWhileWaitingForSlot(t *testing.T) {
	sender := &fakeSender{}
	b := newBot(sender, &fakeAccounts{accs: map[int64]*accounts.Account{}}, fakeCases{}, Options{
		RateLimit:       100,
		RateLimitWindow: time.Minute,
		MaxInflight:     1,
	})
	defer b.rateLimiter.Close()

	// единственный слот занят зависшим обработчиком
	b.inflight <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan telego.Update)
	done := make(chan error, 1)
	go func() { done <- b.dispatch(ctx, updates) }()

	// небуферизованный канал: после отправки dispatch уже держит апдейт и ждёт слот
	updates <- privateText(1, "/help")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after cancel")
	}
	if n := sender.count(); n != 0 {
		t.Errorf("sent %d, want 0", n)
	}
}
