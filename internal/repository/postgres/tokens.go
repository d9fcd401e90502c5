package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

// PostgresTokenRepository implements repositories.TokenRepository
type PostgresTokenRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(config *RepositoryConfig) repositories.TokenRepository {
	return &PostgresTokenRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetAccount retrieves a user's token account
func (r *PostgresTokenRepository) GetAccount(ctx context.Context, userID string) (*models.UserTokenAccount, error) {
	query := fmt.Sprintf(`
		SELECT user_id, balance, tier, monthly_allowance, last_reset_date
		FROM %s
		WHERE user_id = $1
	`, r.tables.TokenAccounts)

	var a models.UserTokenAccount
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID).Scan(
		&a.UserID,
		&a.Balance,
		&a.Tier,
		&a.MonthlyAllowance,
		&a.LastResetDate,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("token account %s: %w", userID, domain.ErrNotFound)
		}
		return nil, classify("get token account", err)
	}
	return &a, nil
}

// CreateAccount inserts an account, leaving an existing one untouched
func (r *PostgresTokenRepository) CreateAccount(ctx context.Context, account *models.UserTokenAccount) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, balance, tier, monthly_allowance, last_reset_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, r.tables.TokenAccounts)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		account.UserID,
		account.Balance,
		account.Tier,
		account.MonthlyAllowance,
		account.LastResetDate,
	)
	if err != nil {
		return classify("create token account", err)
	}
	return nil
}

// SetTier changes tier and allowance without touching the balance
func (r *PostgresTokenRepository) SetTier(ctx context.Context, userID string, tier models.Tier, allowance int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET tier = $1, monthly_allowance = $2 WHERE user_id = $3
	`, r.tables.TokenAccounts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tier, allowance, userID)
	if err != nil {
		return classify("set tier", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("token account %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// Deduct subtracts cost in a single guarded statement so two concurrent
// deductions can never take the balance below zero.
func (r *PostgresTokenRepository) Deduct(ctx context.Context, userID string, cost int) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET balance = balance - $1
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance
	`, r.tables.TokenAccounts)

	var balance int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, cost, userID).Scan(&balance); err != nil {
		if isPgNoRowsError(err) {
			return 0, domain.ErrInsufficientTokens
		}
		return 0, classify("deduct tokens", err)
	}
	return balance, nil
}

// AppendTransaction records an audit entry
func (r *PostgresTokenRepository) AppendTransaction(ctx context.Context, txn *models.TokenTransaction) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, action_type, cost, script_id, mentor_id, scene_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.TokenTransactions)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		txn.ID,
		txn.UserID,
		txn.ActionType,
		txn.Cost,
		txn.ScriptID,
		txn.MentorID,
		txn.SceneID,
		txn.Timestamp,
	)
	if err != nil {
		return classify("append token transaction", err)
	}
	return nil
}

// ListTransactions returns the newest transactions first. ULID ids break
// timestamp ties in creation order.
func (r *PostgresTokenRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, action_type, cost, script_id, mentor_id, scene_id, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, r.tables.TokenTransactions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, classify("list token transactions", err)
	}
	defer rows.Close()

	txns := []models.TokenTransaction{}
	for rows.Next() {
		var t models.TokenTransaction
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.ActionType,
			&t.Cost,
			&t.ScriptID,
			&t.MentorID,
			&t.SceneID,
			&t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan token transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list token transactions", err)
	}
	return txns, nil
}

// ResetDue restores balances whose reset cycle has elapsed
func (r *PostgresTokenRepository) ResetDue(ctx context.Context, now time.Time, cycle time.Duration) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET balance = monthly_allowance, last_reset_date = $1
		WHERE last_reset_date <= $2
	`, r.tables.TokenAccounts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, now, now.Add(-cycle))
	if err != nil {
		return 0, classify("reset token balances", err)
	}
	if n := result.RowsAffected(); n > 0 {
		r.logger.Info("token balances reset", "accounts", n)
	}
	return result.RowsAffected(), nil
}
