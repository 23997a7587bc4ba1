// Package bot — Telegram-бот мини-приложения.
// bot.go принимает апдейты через long polling и отвечает на команды:
// /start регистрирует игрока и даёт кнопку мини-приложения,
// /balance показывает счёт, /cases — витрину кейсов.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/bot/filters"
	"serotonyl.ru/lootcase-bot/internal/bot/middleware"
	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
	"serotonyl.ru/lootcase-bot/internal/ratelimit"
)

// Sender отправляет сообщения. *telego.Bot его реализует.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// AccountService — то, что боту нужно от аккаунтов.
type AccountService interface {
	Init(ctx context.Context, p accounts.Profile) (*accounts.Account, bool, error)
	Get(ctx context.Context, id int64) (*accounts.Account, error)
}

// CaseLister отдаёт витрину кейсов.
type CaseLister interface {
	Summaries() []catalog.Summary
}

// Options — настройки бота.
type Options struct {
	MiniAppURL      string
	MaxInflight     int
	UpdateTimeout   int // секунды long polling
	RateLimit       int
	RateLimitWindow time.Duration
}

// Bot — Telegram-бот.
type Bot struct {
	api    *telego.Bot
	sender Sender

	accounts AccountService
	cases    CaseLister
	opts     Options

	rateLimiter *ratelimit.Limiter[int64]

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота поверх telego-клиента.
func New(api *telego.Bot, accs AccountService, cases CaseLister, opts Options) *Bot {
	b := newBot(api, accs, cases, opts)
	b.api = api
	return b
}

func newBot(sender Sender, accs AccountService, cases CaseLister, opts Options) *Bot {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 64
	}
	return &Bot{
		sender:      sender,
		accounts:    accs,
		cases:       cases,
		opts:        opts,
		rateLimiter: ratelimit.New[int64](opts.RateLimit, opts.RateLimitWindow),
		inflight:    make(chan struct{}, opts.MaxInflight),
	}
}

// Start читает апдейты до отмены ctx и ждёт завершения обработчиков.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.opts.UpdateTimeout,
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": b.opts.MaxInflight,
		"timeout_sec":  b.opts.UpdateTimeout,
	}).Info("Бот запущен и ожидает сообщения...")

	return b.dispatch(ctx, updates)
}

// dispatch раздаёт апдейты воркерам, не больше MaxInflight одновременно.
// Ждать свободный слот можно только до отмены ctx.
func (b *Bot) dispatch(ctx context.Context, updates <-chan telego.Update) error {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал апдейтов закрыт")
				return nil
			}

			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				log.WithField("update_id", update.UpdateID).Info("Бот останавливается, апдейт пропущен")
				return nil
			}

			b.wg.Add(1)
			go func(upd telego.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.HandleUpdate(ctx, upd)
			}(update)
		}
	}
}

// HandleUpdate обрабатывает один апдейт.
func (b *Bot) HandleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}
	middleware.LogMessage(message)

	if !filters.CheckAccess(message) {
		return
	}
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	cmd, _, isCommand := ParseCommand(message.Text)
	if !isCommand {
		return
	}

	switch cmd {
	case "start":
		b.handleStart(ctx, message)
	case "balance":
		b.handleBalance(ctx, message)
	case "cases":
		b.handleCases(ctx, message)
	case "help":
		b.sendMessage(ctx, message.Chat.ID, helpText)
	}
}

const helpText = "Команды:\n/start — открыть мини-приложение\n/balance — баланс и статистика\n/cases — список кейсов"

func (b *Bot) handleStart(ctx context.Context, message *telego.Message) {
	from := message.From
	firstName := from.FirstName
	if strings.TrimSpace(firstName) == "" {
		firstName = from.Username
	}

	acc, created, err := b.accounts.Init(ctx, accounts.Profile{
		ID:        from.ID,
		FirstName: firstName,
		LastName:  from.LastName,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", from.ID).Warn("Не удалось зарегистрировать игрока")
		b.sendMessage(ctx, message.Chat.ID, "Не получилось создать профиль, попробуйте позже")
		return
	}

	greeting := "С возвращением"
	if created {
		greeting = "Привет"
	}
	text := fmt.Sprintf("%s, %s! 🎁\nНа счету: %s.\nСмотрите рекламу, копите монеты и открывайте кейсы в мини-приложении.",
		greeting, acc.FirstName, common.FormatBalance(acc.Balance))

	msg := tu.Message(tu.ID(message.Chat.ID), text)
	if b.opts.MiniAppURL != "" {
		msg = msg.WithReplyMarkup(tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("🎁 Открыть кейсы").WithWebApp(&telego.WebAppInfo{URL: b.opts.MiniAppURL}),
			),
		))
	}
	b.send(ctx, msg)
}

func (b *Bot) handleBalance(ctx context.Context, message *telego.Message) {
	acc, err := b.accounts.Get(ctx, message.From.ID)
	switch {
	case errors.Is(err, common.ErrAccountNotFound):
		b.sendMessage(ctx, message.Chat.ID, "Профиль не найден. Нажмите /start")
		return
	case err != nil:
		log.WithError(err).WithField("user_id", message.From.ID).Warn("Не удалось получить баланс")
		b.sendMessage(ctx, message.Chat.ID, "Не получилось получить баланс, попробуйте позже")
		return
	}

	text := fmt.Sprintf("💰 Баланс: %s\n📺 Реклам просмотрено: %s\n📦 Открыто: %s %s\n💸 Потрачено: %s",
		common.FormatBalance(acc.Balance),
		common.FormatNumber(acc.AdsWatched),
		common.FormatNumber(acc.CasesOpened), common.PluralizeCases(acc.CasesOpened),
		common.FormatBalance(acc.TotalSpent),
	)
	b.sendMessage(ctx, message.Chat.ID, text)
}

func (b *Bot) handleCases(ctx context.Context, message *telego.Message) {
	var sb strings.Builder
	sb.WriteString("🎁 Кейсы:\n")
	for _, cs := range b.cases.Summaries() {
		price := common.FormatBalance(cs.Price)
		if cs.IsFree {
			price = "бесплатно"
		}
		fmt.Fprintf(&sb, "• %s: %s\n", cs.Name, price)
	}
	b.sendMessage(ctx, message.Chat.ID, strings.TrimRight(sb.String(), "\n"))
}

// sendMessage — утилита для отправки простого текста.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tu.Message(tu.ID(chatID), text))
}

func (b *Bot) send(ctx context.Context, msg *telego.SendMessageParams) {
	if _, err := b.sender.SendMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("chat_id", msg.ChatID.ID).Error("Ошибка отправки сообщения")
	}
}
