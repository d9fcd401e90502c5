package tokens

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

var errNetwork = errors.New("dial tcp: connection refused")

type memoryTokenRepo struct {
	mu           sync.Mutex
	accounts     map[string]*models.UserTokenAccount
	transactions []models.TokenTransaction
	getErr       error
	appendErr    error
	// drainOnDeduct empties the balance right before a deduction, to
	// simulate a concurrent spend
	drainOnDeduct bool
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{accounts: map[string]*models.UserTokenAccount{}}
}

func (r *memoryTokenRepo) GetAccount(ctx context.Context, userID string) (*models.UserTokenAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryTokenRepo) CreateAccount(ctx context.Context, account *models.UserTokenAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.UserID]; !ok {
		copied := *account
		r.accounts[account.UserID] = &copied
	}
	return nil
}

func (r *memoryTokenRepo) SetTier(ctx context.Context, userID string, tier models.Tier, allowance int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	a.Tier = tier
	a.MonthlyAllowance = allowance
	return nil
}

func (r *memoryTokenRepo) Deduct(ctx context.Context, userID string, cost int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if r.drainOnDeduct {
		a.Balance = 0
	}
	if a.Balance < cost {
		return 0, domain.ErrInsufficientTokens
	}
	a.Balance -= cost
	return a.Balance, nil
}

func (r *memoryTokenRepo) AppendTransaction(ctx context.Context, txn *models.TokenTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.transactions = append(r.transactions, *txn)
	return nil
}

func (r *memoryTokenRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TokenTransaction
	for _, t := range r.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryTokenRepo) ResetDue(ctx context.Context, now time.Time, cycle time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if now.Sub(a.LastResetDate) >= cycle {
			a.Balance = a.MonthlyAllowance
			a.LastResetDate = now
			n++
		}
	}
	return n, nil
}

// snapshotTx restores the repository state when fn fails, like a real rollback
type snapshotTx struct {
	repo *memoryTokenRepo
}

func (m snapshotTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	m.repo.mu.Lock()
	saved := map[string]models.UserTokenAccount{}
	for k, v := range m.repo.accounts {
		saved[k] = *v
	}
	txCount := len(m.repo.transactions)
	m.repo.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.repo.mu.Lock()
		for k, v := range saved {
			v := v
			m.repo.accounts[k] = &v
		}
		m.repo.transactions = m.repo.transactions[:txCount]
		m.repo.mu.Unlock()
		return err
	}
	return nil
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []int
}

func (o *recordingObserver) BalanceCritical(ctx context.Context, userID string, balance, threshold int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, balance)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(repo *memoryTokenRepo, observers ...BalanceObserver) *Ledger {
	return NewLedger(repo, snapshotTx{repo: repo}, discardLogger(), observers...)
}

func seedAccount(repo *memoryTokenRepo, userID string, tier models.Tier, balance int) {
	repo.accounts[userID] = &models.UserTokenAccount{
		UserID:           userID,
		Balance:          balance,
		Tier:             tier,
		MonthlyAllowance: Allowance(tier),
		LastResetDate:    time.Now().UTC(),
	}
}
