package repositories

import (
	"context"
	"time"

	"scriptmentor/internal/domain/models"
)

// TokenRepository defines data access for token accounts and the
// append-only transaction log.
type TokenRepository interface {
	// GetAccount returns domain.ErrNotFound when the user has no account yet
	GetAccount(ctx context.Context, userID string) (*models.UserTokenAccount, error)

	// CreateAccount inserts an account. An existing row is left untouched.
	CreateAccount(ctx context.Context, account *models.UserTokenAccount) error

	// SetTier changes the user's tier and allowance. The balance is not reset.
	SetTier(ctx context.Context, userID string, tier models.Tier, allowance int) error

	// Deduct subtracts cost only if the balance covers it and returns the new
	// balance. Returns domain.ErrInsufficientTokens otherwise.
	Deduct(ctx context.Context, userID string, cost int) (int, error)

	// AppendTransaction records an audit entry. ID must already be set.
	AppendTransaction(ctx context.Context, txn *models.TokenTransaction) error

	// ListTransactions returns the newest transactions first
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error)

	// ResetDue restores balance to the allowance for accounts whose last reset
	// is older than cycle, and returns how many were reset
	ResetDue(ctx context.Context, now time.Time, cycle time.Duration) (int64, error)
}
