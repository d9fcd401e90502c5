package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the prefixed tables and indexes if they do not exist.
// Supabase migrations normally own the schema; this is for fresh dev and
// test projects.
func EnsureSchema(ctx context.Context, config *RepositoryConfig) error {
	t := config.Tables
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			processed_content TEXT NOT NULL DEFAULT '',
			characters JSONB NOT NULL DEFAULT '{}'::jsonb,
			chunks JSONB,
			chunking_strategy TEXT,
			total_pages INTEGER,
			is_encrypted BOOLEAN,
			encryption_version TEXT,
			file_size BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_accessed TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, t.Scripts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_accessed_idx ON %s (user_id, last_accessed DESC)`, t.Scripts, t.Scripts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL CHECK (balance >= 0),
			tier TEXT NOT NULL DEFAULT 'free',
			monthly_allowance INTEGER NOT NULL,
			last_reset_date TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, t.TokenAccounts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			cost INTEGER NOT NULL CHECK (cost >= 1),
			script_id TEXT,
			mentor_id TEXT,
			scene_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, t.TokenTransactions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_created_idx ON %s (user_id, created_at DESC)`, t.TokenTransactions, t.TokenTransactions),
	}

	for _, stmt := range statements {
		if _, err := config.Pool.Exec(ctx, stmt); err != nil {
			return classify("ensure schema", err)
		}
	}
	config.Logger.Info("schema ready", "tables", t.All())
	return nil
}

// DropSchema drops every prefixed table.
func DropSchema(ctx context.Context, config *RepositoryConfig) error {
	for _, table := range config.Tables.All() {
		if _, err := config.Pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table)); err != nil {
			return classify("drop "+table, err)
		}
		config.Logger.Info("dropped table", "table", table)
	}
	return nil
}
