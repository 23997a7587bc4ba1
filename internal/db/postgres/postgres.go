// Package postgres управляет подключением к базе данных PostgreSQL
// и реализует хранилище аккаунтов и сессий открытия.
// Используется пул соединений pgxpool: разные аккаунты обслуживаются
// параллельно, изменения одного аккаунта сериализуются блокировкой строки.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lootcase-bot/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewPool создаёт новый пул соединений к PostgreSQL.
//
// Пример:
//
//	pool, err := postgres.NewPool(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return Connect(ctx, cfg.DatabaseDSN(), cfg.DBMaxConns, cfg.DBMinConns)
}

// Connect открывает пул по DSN. Используется и тестами с TEST_DATABASE_URL.
func Connect(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	if minConns > 0 {
		poolConfig.MinConns = minConns
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.Info("Подключение к PostgreSQL установлено")
	return pool, nil
}

// RunMigrations применяет встроенные миграции migrations/NNN_*.sql.
// Номер берётся из префикса имени файла, каждая версия применяется один раз.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		name := path.Base(file)
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}
		body, err := migrationsFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("ошибка чтения миграции %s: %w", name, err)
		}
		if err := ExecMigrationSQL(ctx, pool, version, string(body)); err != nil {
			return err
		}
	}

	log.WithField("count", len(files)).Info("Миграции PostgreSQL применены")
	return nil
}

// migrationVersion достаёт номер из имени вида 001_init.sql.
func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("миграция %s: имя должно начинаться с номера", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("миграция %s: некорректный номер %q", name, prefix)
	}
	return v, nil
}
