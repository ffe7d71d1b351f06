package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// Runner executes functions inside a database transaction carried through
// context, so feature stores and the audit outbox store commit together
// without knowing who owns the transaction.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, timeout: defaultTxTimeout}
}

// RunInTx begins a transaction, stores it in the context handed to fn, and
// commits when fn returns nil. Any error rolls back. A deadline is imposed
// when the caller brought none, so a stuck transaction cannot hold row locks
// indefinitely.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
