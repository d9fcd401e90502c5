package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scriptmentor/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Scripts           string
	TokenAccounts     string
	TokenTransactions string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Scripts:           fmt.Sprintf("%sscripts", prefix),
		TokenAccounts:     fmt.Sprintf("%stoken_accounts", prefix),
		TokenTransactions: fmt.Sprintf("%stoken_transactions", prefix),
	}
}

// All lists the tables in dependency order
func (t *TableNames) All() []string {
	return []string{t.TokenTransactions, t.TokenAccounts, t.Scripts}
}

// CreateConnectionPool creates a pgx pool against the Supabase database.
//
// Port 6543 is Supabase's transaction pooler (PgBouncer), which does not
// support prepared statements. On that port the pool switches to
// QueryExecModeCacheDescribe unless the connection string already sets
// default_query_exec_mode.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify("ping database", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool.
// Repositories use it so they join a transaction when one exists.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
