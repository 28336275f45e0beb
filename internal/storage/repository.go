// Package storage persists the payout rate record in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/settings"
)

const settingsTable = "settings"

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var (
	_ settings.Store  = (*SQLiteRepository)(nil)
	_ settings.Pinger = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers so SQLite never reports busy.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Read implements settings.Store.
func (r *SQLiteRepository) Read(ctx context.Context) (core.PayoutRates, error) {
	raw, found, err := r.get(ctx, settings.RecordKey)
	if err != nil {
		return core.PayoutRates{}, err
	}
	if !found {
		return core.DefaultPayoutRates, nil
	}
	rates, err := settings.DecodeRecord([]byte(raw))
	if err != nil {
		r.logger.WarnContext(ctx, "Stored payout rates unreadable, using defaults",
			log.FieldOperation, log.OpRead,
			log.FieldError, err.Error())
		return core.DefaultPayoutRates, nil
	}
	return rates, nil
}

// Write implements settings.Store with a single upsert statement.
func (r *SQLiteRepository) Write(ctx context.Context, rates core.PayoutRates) error {
	raw, err := settings.EncodeRecord(rates)
	if err != nil {
		return err
	}
	return r.put(ctx, settings.RecordKey, string(raw))
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sq.Select("value").
		From(settingsTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build settings query: %w", err)
	}

	var value string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) put(ctx context.Context, key, value string) error {
	query, args, err := sq.Insert(settingsTable).
		Columns("key", "value", "updated_at").
		Values(key, value, r.now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build settings upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}

	r.logger.DebugContext(ctx, "Setting saved", "key", key)
	return nil
}
