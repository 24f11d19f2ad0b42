package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "linkmart/pkg/domain-errors"
	txcontext "linkmart/pkg/platform/tx"
)

const defaultTxTimeout = 10 * time.Second

// postgresRunner is the production tx.Runner. The callback context carries
// the open transaction; every tx-aware store joins it, and an error from the
// callback rolls everything back.
type postgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresRunner(db *sql.DB) *postgresRunner {
	return &postgresRunner{db: db}
}

func (r *postgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
