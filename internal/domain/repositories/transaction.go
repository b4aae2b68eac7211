package repositories

import "context"

// TxFn runs with a context carrying the open transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs structural mutations atomically. Every write to
// the folder tree goes through ExecTx so parent pointers, closure rows and
// materialized paths commit or roll back together.
type TransactionManager interface {
	// ExecTx begins a transaction, runs fn with it on the context, and
	// commits when fn returns nil. Any error rolls everything back.
	ExecTx(ctx context.Context, fn TxFn) error
}
