// Package config загружает конфигурацию сервера из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	Port             string        `envconfig:"PORT" default:"3000"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	// Папка со статикой мини-приложения (index.html и ассеты)
	StaticDir        string `envconfig:"STATIC_DIR" default:"public"`
	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	// --- Storage ---
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	// Путь к файлу SQLite (для STORAGE_DRIVER=sqlite)
	DatabasePath string `envconfig:"DATABASE_PATH" default:"./database.db"`

	// --- Database (PostgreSQL) ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"lootcase"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"lootcase"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Telegram ---
	// Пустой токен — бот не запускается, работает только HTTP API.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	MiniAppURL       string `envconfig:"MINIAPP_URL"`
	// Сколько апдейтов обрабатываем параллельно.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	// Argon2id-хеш пароля для тестового начисления баланса. Пусто — эндпоинт выключен.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Catalog ---
	// YAML с кейсами. Пусто — встроенный каталог.
	CatalogPath string `envconfig:"CATALOG_PATH"`

	// --- Economy ---
	AdReward int64 `envconfig:"AD_REWARD" default:"1"`

	// --- Opening ---
	OpeningSessionTTL   time.Duration `envconfig:"OPENING_SESSION_TTL" default:"10m"`
	OpeningStripLength  int           `envconfig:"OPENING_STRIP_LENGTH" default:"51"`
	OpeningWinningIndex int           `envconfig:"OPENING_WINNING_INDEX" default:"25"`
	// cron-выражение очистки протухших сессий
	SessionSweepSchedule string `envconfig:"SESSION_SWEEP_SCHEDULE" default:"@every 1m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// AllowedOrigins разбирает CORS_ALLOW_ORIGINS (через запятую).
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BotEnabled сообщает, нужно ли поднимать Telegram-бота.
func (c *Config) BotEnabled() bool {
	return strings.TrimSpace(c.TelegramBotToken) != ""
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("DATABASE_PATH не задан")
		}
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORAGE_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q (sqlite|postgres)", c.StorageDriver)
	}
	if c.BotEnabled() {
		if c.MiniAppURL == "" {
			return fmt.Errorf("MINIAPP_URL обязателен, если задан TELEGRAM_BOT_TOKEN")
		}
		if c.BotMaxInflight <= 0 {
			return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
		}
		if c.BotUpdateTimeoutSeconds <= 0 {
			return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
		}
	}
	if c.AdReward <= 0 {
		return fmt.Errorf("AD_REWARD должен быть > 0")
	}
	if c.OpeningSessionTTL <= 0 {
		return fmt.Errorf("OPENING_SESSION_TTL должен быть > 0")
	}
	if c.OpeningStripLength <= 0 {
		return fmt.Errorf("OPENING_STRIP_LENGTH должен быть > 0")
	}
	if c.OpeningWinningIndex < 0 || c.OpeningWinningIndex >= c.OpeningStripLength {
		return fmt.Errorf("OPENING_WINNING_INDEX вне диапазона [0, %d)", c.OpeningStripLength)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
