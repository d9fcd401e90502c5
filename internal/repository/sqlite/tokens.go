package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

// TokenRepository implements repositories.TokenRepository
type TokenRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB, logger *slog.Logger) repositories.TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

// GetAccount retrieves a user's token account
func (r *TokenRepository) GetAccount(ctx context.Context, userID string) (*models.UserTokenAccount, error) {
	var (
		a         models.UserTokenAccount
		lastReset string
	)
	err := executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT user_id, balance, tier, monthly_allowance, last_reset_date
		FROM token_accounts WHERE user_id = ?`, userID,
	).Scan(&a.UserID, &a.Balance, &a.Tier, &a.MonthlyAllowance, &lastReset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token account %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get token account: %w", err)
	}
	if a.LastResetDate, err = parseTime(lastReset); err != nil {
		return nil, fmt.Errorf("parse last_reset_date: %w", err)
	}
	return &a, nil
}

// CreateAccount inserts an account, leaving an existing one untouched
func (r *TokenRepository) CreateAccount(ctx context.Context, account *models.UserTokenAccount) error {
	_, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO token_accounts (user_id, balance, tier, monthly_allowance, last_reset_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		account.UserID,
		account.Balance,
		account.Tier,
		account.MonthlyAllowance,
		formatTime(account.LastResetDate),
	)
	if err != nil {
		return fmt.Errorf("create token account: %w", err)
	}
	return nil
}

// SetTier changes tier and allowance without touching the balance
func (r *TokenRepository) SetTier(ctx context.Context, userID string, tier models.Tier, allowance int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE token_accounts SET tier = ?, monthly_allowance = ? WHERE user_id = ?`, tier, allowance, userID)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return requireRow(result, "token account", userID)
}

// Deduct subtracts cost only when the balance covers it
func (r *TokenRepository) Deduct(ctx context.Context, userID string, cost int) (int, error) {
	var balance int
	err := executor(ctx, r.db).QueryRowContext(ctx, `
		UPDATE token_accounts
		SET balance = balance - ?
		WHERE user_id = ? AND balance >= ?
		RETURNING balance`, cost, userID, cost,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrInsufficientTokens
		}
		return 0, fmt.Errorf("deduct tokens: %w", err)
	}
	return balance, nil
}

// AppendTransaction records an audit entry
func (r *TokenRepository) AppendTransaction(ctx context.Context, txn *models.TokenTransaction) error {
	_, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO token_transactions (id, user_id, action_type, cost, script_id, mentor_id, scene_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.UserID,
		txn.ActionType,
		txn.Cost,
		txn.ScriptID,
		txn.MentorID,
		txn.SceneID,
		formatTime(txn.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append token transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the newest transactions first
func (r *TokenRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, user_id, action_type, cost, script_id, mentor_id, scene_id, created_at
		FROM token_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list token transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.TokenTransaction{}
	for rows.Next() {
		var (
			t                           models.TokenTransaction
			scriptID, mentorID, sceneID sql.NullString
			createdAt                   string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.ActionType, &t.Cost, &scriptID, &mentorID, &sceneID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan token transaction: %w", err)
		}
		t.ScriptID = nullable(scriptID)
		t.MentorID = nullable(mentorID)
		t.SceneID = nullable(sceneID)
		if t.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ResetDue restores balances whose reset cycle has elapsed
func (r *TokenRepository) ResetDue(ctx context.Context, now time.Time, cycle time.Duration) (int64, error) {
	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE token_accounts
		SET balance = monthly_allowance, last_reset_date = ?
		WHERE last_reset_date <= ?`, formatTime(now), formatTime(now.Add(-cycle)))
	if err != nil {
		return 0, fmt.Errorf("reset token balances: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("token balances reset", "accounts", n)
	}
	return n, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
