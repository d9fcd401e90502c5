package repositories

import "context"

// TxFn is a function that runs within a transaction. Repositories called with
// the ctx it receives participate in the same transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions for either backend
type TransactionManager interface {
	// ExecTx executes fn within a transaction, committing when it returns nil
	ExecTx(ctx context.Context, fn TxFn) error
}
