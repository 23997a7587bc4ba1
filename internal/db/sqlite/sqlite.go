// Package sqlite — хранилище аккаунтов и сессий открытия на SQLite (modernc.org/sqlite, без cgo).
// Все записи идут через одно соединение, поэтому изменения баланса
// сериализуются без явных блокировок.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"serotonyl.ru/lootcase-bot/internal/common"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store — SQLite-хранилище.
type Store struct {
	db *sql.DB
}

// querier — общее у *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open открывает базу по пути и применяет миграции.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("не указан путь к базе SQLite")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}
	// Одно соединение: писатели встают в очередь database/sql
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("база SQLite недоступна: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.WithField("path", path).Info("Подключение к SQLite установлено")
	return &Store{db: db}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// migrate применяет файлы migrations/*.sql по порядку имён, каждый не более одного раза.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
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
		name := filepath.Base(file)
		body, err := migrationsFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("ошибка чтения миграции %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, name, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, name, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = ?)`, name,
	).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки миграции %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("ошибка выполнения миграции %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("ошибка записи миграции %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации миграции %s: %w", name, err)
	}
	log.WithField("migration", name).Info("Миграция применена")
	return nil
}

// storeErr помечает сбой драйвера как недоступность хранилища.
// Отмена контекста пробрасывается как есть.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
