// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилище, каталог, сервисы, HTTP API,
// Telegram-бот и планировщик.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/bot"
	"serotonyl.ru/lootcase-bot/internal/config"
	"serotonyl.ru/lootcase-bot/internal/db/postgres"
	"serotonyl.ru/lootcase-bot/internal/db/sqlite"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/admin"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
	"serotonyl.ru/lootcase-bot/internal/features/opening"
	"serotonyl.ru/lootcase-bot/internal/httpapi"
	"serotonyl.ru/lootcase-bot/internal/jobs"
)

// shutdownTimeout — сколько ждём активные HTTP-запросы при остановке.
const shutdownTimeout = 10 * time.Second

// Store — хранилище аккаунтов и сессий открытия.
type Store interface {
	accounts.Repository
	opening.Store
}

// App содержит все компоненты приложения.
type App struct {
	Server    *httpapi.Server
	Bot       *bot.Bot // nil, если TELEGRAM_BOT_TOKEN не задан
	Scheduler *jobs.Scheduler

	closers []func()
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Каталог ===
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки каталога: %w", err)
	}
	log.WithField("cases", len(cat.Cases())).Info("Каталог кейсов загружен")

	// === 2. Хранилище ===
	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// === 3. Сервисы ===
	accountService := accounts.NewService(store, cfg.AdReward)
	sessions := opening.NewSessions(store, cfg.OpeningSessionTTL)
	openingService := opening.NewService(cat, accountService, sessions, opening.Options{
		StripLength:  cfg.OpeningStripLength,
		WinningIndex: cfg.OpeningWinningIndex,
	}, nil)
	adminService := admin.NewService(accountService, cfg.AdminPasswordHash)

	// === 4. HTTP API ===
	a.Server = httpapi.New(cfg,
		accounts.NewHandler(accountService),
		opening.NewHandler(openingService),
		admin.NewHandler(adminService),
	)

	// === 5. Telegram ===
	if cfg.BotEnabled() {
		api, err := telego.NewBot(cfg.TelegramBotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		me, err := api.GetMe(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка авторизации бота: %w", err)
		}
		log.Infof("Авторизован как @%s", me.Username)

		a.Bot = bot.New(api, accountService, cat, bot.Options{
			MiniAppURL:      cfg.MiniAppURL,
			MaxInflight:     cfg.BotMaxInflight,
			UpdateTimeout:   cfg.BotUpdateTimeoutSeconds,
			RateLimit:       cfg.RateLimitRequests,
			RateLimitWindow: cfg.RateLimitWindow,
		})
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN не задан, бот не запускается")
	}

	// === 6. Планировщик задач ===
	a.Scheduler, err = jobs.NewScheduler(sessions, cfg.SessionSweepSchedule)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// openStore подключает хранилище по STORAGE_DRIVER и прогоняет миграции.
func (a *App) openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		log.Info("Хранилище: PostgreSQL")
		return postgres.NewStore(pool), nil

	default:
		store, err := sqlite.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("Ошибка закрытия SQLite")
			}
		})
		log.WithField("path", cfg.DatabasePath).Info("Хранилище: SQLite")
		return store, nil
	}
}

// Run запускает всё и блокируется до отмены ctx или падения HTTP-сервера.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	botDone := make(chan struct{})
	if a.Bot != nil {
		go func() {
			defer close(botDone)
			if err := a.Bot.Start(ctx); err != nil {
				log.WithError(err).Error("Бот остановился с ошибкой")
			}
		}()
	} else {
		close(botDone)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.Server.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = err
		if runErr == nil {
			runErr = errors.New("HTTP сервер остановился")
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP сервер остановлен не штатно")
	}
	<-botDone

	return runErr
}

// Close освобождает хранилище. Вызывать после Run.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
