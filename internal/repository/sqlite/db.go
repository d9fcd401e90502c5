// Package sqlite is the local backend: the same repositories as the
// Supabase one, on a single SQLite file. It serves development, the offline
// CLI and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scriptmentor/internal/domain/repositories"
)

// timestamps are stored as fixed-width UTC text so they compare as strings
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; transactions stay on their own connection
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scripts (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		title              TEXT NOT NULL,
		content            TEXT NOT NULL DEFAULT '',
		processed_content  TEXT NOT NULL DEFAULT '',
		characters         TEXT NOT NULL DEFAULT '{}',
		chunks             TEXT,
		chunking_strategy  TEXT,
		total_pages        INTEGER,
		is_encrypted       INTEGER,
		encryption_version TEXT,
		file_size          INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		last_accessed      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scripts_user_accessed ON scripts(user_id, last_accessed DESC);

	CREATE TABLE IF NOT EXISTS token_accounts (
		user_id           TEXT PRIMARY KEY,
		balance           INTEGER NOT NULL CHECK (balance >= 0),
		tier              TEXT NOT NULL DEFAULT 'free',
		monthly_allowance INTEGER NOT NULL,
		last_reset_date   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS token_transactions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		action_type TEXT NOT NULL,
		cost        INTEGER NOT NULL CHECK (cost >= 1),
		script_id   TEXT,
		mentor_id   TEXT,
		scene_id    TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_token_transactions_user ON token_transactions(user_id, created_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}

// executor returns the transaction in ctx, or db
func executor(ctx context.Context, db *sql.DB) repositories.SQLTX {
	if tx := repositories.GetSQLTx(ctx); tx != nil {
		return tx
	}
	return db
}

// TransactionManager implements repositories.TransactionManager on database/sql
type TransactionManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *sql.DB, logger *slog.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// ExecTx executes fn within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			tm.logger.Warn("rollback failed", "error", err)
		}
	}()

	if err := fn(repositories.SetSQLTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
