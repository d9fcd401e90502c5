package repositories

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that both *pgxpool.Pool and pgx.Tx implement.
// Postgres repositories run against it so they join a transaction when one
// is present in the context.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

// SQLTX is the database/sql counterpart of DBTX, implemented by both *sql.DB
// and *sql.Tx. The sqlite repositories use it.
type SQLTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey string

const (
	pgxTxKey txContextKey = "pgx_tx"
	sqlTxKey txContextKey = "sql_tx"
)

// SetTx stores a pgx transaction in the context
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, pgxTxKey, tx)
}

// GetTx retrieves a pgx transaction from the context.
// Returns nil if no transaction is present
func GetTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(pgxTxKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// SetSQLTx stores a database/sql transaction in the context
func SetSQLTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, sqlTxKey, tx)
}

// GetSQLTx retrieves a database/sql transaction from the context, or nil
func GetSQLTx(ctx context.Context) *sql.Tx {
	tx, ok := ctx.Value(sqlTxKey).(*sql.Tx)
	if !ok {
		return nil
	}
	return tx
}
