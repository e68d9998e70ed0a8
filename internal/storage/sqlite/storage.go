package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
)

// Storage is a single-device key-value store kept in a SQLite file.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens path and prepares the schema. Use ":memory:" for a throwaway
// database.
func New(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
        )`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classify(err)
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	const query = `INSERT INTO kv_store (key, value) VALUES (?, ?)
                   ON CONFLICT (key) DO UPDATE
                   SET value = excluded.value, updated_at = strftime('%s','now')`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return classify(err)
	}
	return nil
}

// HealthCheck verifies the database handle is usable.
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func classify(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %w", domainErrors.ErrStorageUnavailable, err)
	case strings.Contains(msg, "SQLITE_FULL"), strings.Contains(msg, "database or disk is full"):
		return fmt.Errorf("%w: %w", domainErrors.ErrCapacityExceeded, err)
	case strings.Contains(msg, "SQLITE_READONLY"), strings.Contains(msg, "database is closed"):
		return fmt.Errorf("%w: %w", domainErrors.ErrStorageUnavailable, err)
	}
	return err
}
