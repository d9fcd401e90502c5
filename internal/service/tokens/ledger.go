package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

// BalanceObserver is notified when a deduction takes a balance below the
// critical threshold. Implementations must not block.
type BalanceObserver interface {
	BalanceCritical(ctx context.Context, userID string, balance, threshold int)
}

// Ledger reads balances from the store on every check and never caches them.
type Ledger struct {
	repo      repositories.TokenRepository
	txManager repositories.TransactionManager
	observers []BalanceObserver
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedger creates a new ledger
func NewLedger(
	repo repositories.TokenRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
	observers ...BalanceObserver,
) *Ledger {
	return &Ledger{
		repo:      repo,
		txManager: txManager,
		observers: observers,
		logger:    logger,
		now:       time.Now,
	}
}

// Account returns the user's account, creating a free-tier account on
// first use. A read failure is reported as domain.ErrBalanceUnavailable,
// never as an empty balance.
func (l *Ledger) Account(ctx context.Context, userID string) (*models.UserTokenAccount, error) {
	if userID == "" {
		return nil, &domain.UnauthorizedError{Message: "no authenticated user"}
	}

	account, err := l.repo.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", domain.ErrBalanceUnavailable, err)
	}

	account = &models.UserTokenAccount{
		UserID:           userID,
		Balance:          Allowance(models.TierFree),
		Tier:             models.TierFree,
		MonthlyAllowance: Allowance(models.TierFree),
		LastResetDate:    l.now().UTC(),
	}
	if err := l.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: create account: %w", domain.ErrBalanceUnavailable, err)
	}
	l.logger.Info("token account created", "user_id", userID, "tier", account.Tier)

	// re-read in case a concurrent request created it first
	account, err = l.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBalanceUnavailable, err)
	}
	return account, nil
}

// ValidateBalance checks whether the user can afford cost. It never mutates
// state.
func (l *Ledger) ValidateBalance(ctx context.Context, userID string, cost int) (*models.BalanceValidation, error) {
	if cost < 0 {
		return nil, &domain.ValidationError{Message: "cost must not be negative"}
	}
	account, err := l.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return validation(account, cost), nil
}

// ValidateAction is ValidateBalance with the cost taken from the action table
func (l *Ledger) ValidateAction(ctx context.Context, userID string, action models.ActionType) (*models.BalanceValidation, error) {
	p, err := Policy(action)
	if err != nil {
		return nil, err
	}
	return l.ValidateBalance(ctx, userID, p.Cost)
}

func validation(account *models.UserTokenAccount, cost int) *models.BalanceValidation {
	v := &models.BalanceValidation{
		HasEnoughTokens: account.Balance >= cost,
		CurrentBalance:  account.Balance,
		RequiredTokens:  cost,
		Tier:            account.Tier,
		Critical:        account.Balance < CriticalThreshold(account.MonthlyAllowance),
	}
	if !v.HasEnoughTokens {
		v.Shortfall = cost - account.Balance
	}
	return v
}

// CheckTierPermission checks the static policy for the user's current tier
func (l *Ledger) CheckTierPermission(tier models.Tier, action models.ActionType) models.TierPermission {
	return CheckTierPermission(tier, action)
}

// ProcessTransaction checks tier permission and balance, then deducts the
// action's cost and records the transaction in one database transaction.
// A tier restriction or insufficient balance is returned as an unsuccessful
// result with no deduction. Errors are reserved for faults.
func (l *Ledger) ProcessTransaction(ctx context.Context, userID string, action models.ActionType, refs models.TransactionRefs) (*models.TransactionResult, error) {
	p, err := Policy(action)
	if err != nil {
		return nil, err
	}
	account, err := l.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &models.TransactionResult{Action: action}

	permission := CheckTierPermission(account.Tier, action)
	if !permission.Allowed {
		result.Outcome = models.OutcomeTierRestricted
		result.Permission = &permission
		result.UpdatedValidation = validation(account, p.Cost)
		l.logger.Info("token transaction blocked by tier",
			"user_id", userID,
			"action", action,
			"tier", account.Tier,
			"minimum_tier", permission.MinimumTierRequired,
		)
		return result, nil
	}

	before := validation(account, p.Cost)
	if !before.HasEnoughTokens {
		result.Outcome = models.OutcomeInsufficientTokens
		result.UpdatedValidation = before
		return result, nil
	}

	txn := &models.TokenTransaction{
		ID:         ulid.Make().String(),
		UserID:     userID,
		ActionType: action,
		Cost:       p.Cost,
		ScriptID:   optional(refs.ScriptID),
		MentorID:   optional(refs.MentorID),
		SceneID:    optional(refs.SceneID),
		Timestamp:  l.now().UTC(),
	}

	var newBalance int
	err = l.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		newBalance, err = l.repo.Deduct(ctx, userID, p.Cost)
		if err != nil {
			return err
		}
		return l.repo.AppendTransaction(ctx, txn)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientTokens) {
			// balance changed between the check and the deduction
			refreshed, verr := l.ValidateBalance(ctx, userID, p.Cost)
			if verr != nil {
				return nil, verr
			}
			result.Outcome = models.OutcomeInsufficientTokens
			result.UpdatedValidation = refreshed
			return result, nil
		}
		return nil, fmt.Errorf("process token transaction: %w", err)
	}

	after := *account
	after.Balance = newBalance
	result.Success = true
	result.Outcome = models.OutcomeCompleted
	result.Transaction = txn
	result.UpdatedValidation = validation(&after, p.Cost)

	l.logger.Info("tokens deducted",
		"user_id", userID,
		"action", action,
		"cost", p.Cost,
		"balance", newBalance,
	)

	threshold := CriticalThreshold(account.MonthlyAllowance)
	if account.Balance >= threshold && newBalance < threshold {
		for _, o := range l.observers {
			o.BalanceCritical(ctx, userID, newBalance, threshold)
		}
	}

	return result, nil
}

// SetTier moves the user to a new tier and allowance. The balance is only
// restored at the next reset.
func (l *Ledger) SetTier(ctx context.Context, userID string, tier models.Tier) error {
	if !ValidTier(tier) {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown tier %q", tier)}
	}
	if _, err := l.Account(ctx, userID); err != nil {
		return err
	}
	if err := l.repo.SetTier(ctx, userID, tier, Allowance(tier)); err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	l.logger.Info("tier changed", "user_id", userID, "tier", tier)
	return nil
}

// History returns the newest transactions first
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return l.repo.ListTransactions(ctx, userID, limit)
}

// ResetDue restores every account whose cycle has elapsed. It is meant to be
// run from a scheduled job.
func (l *Ledger) ResetDue(ctx context.Context) (int64, error) {
	n, err := l.repo.ResetDue(ctx, l.now().UTC(), ResetCycle)
	if err != nil {
		return 0, fmt.Errorf("reset token balances: %w", err)
	}
	l.logger.Info("token balances reset", "accounts", n)
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// LogObserver reports critical balances to the log
type LogObserver struct {
	Logger *slog.Logger
}

// BalanceCritical implements BalanceObserver
func (o LogObserver) BalanceCritical(ctx context.Context, userID string, balance, threshold int) {
	o.Logger.WarnContext(ctx, "token balance critical",
		"user_id", userID,
		"balance", balance,
		"threshold", threshold,
	)
}
