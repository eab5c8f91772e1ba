package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxFunc receives the transaction as an sqlx.ExtContext so repositories can
// accept either a transaction or the pool.
type TxFunc func(exec sqlx.ExtContext) error

// TxRunner executes units of work inside a single transaction.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner constructs a runner on top of the pool.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise, including on panic.
func (r *TxRunner) RunInTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
