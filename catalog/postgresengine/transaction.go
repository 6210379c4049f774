package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

// txFunc is the body of a transaction. It must not commit or roll back.
type txFunc func(ctx context.Context, tx adapters.DBTx) error

// withinTransaction runs fn in a READ COMMITTED transaction on the primary database.
// Any error rolls the transaction back. Serialization failures and deadlocks run fn again
// in a fresh transaction with exponential backoff.
func (cs *CatalogStore) withinTransaction(ctx context.Context, operation string, fn txFunc) error {
	meta, err := catalog.RetryWithExponentialBackoff(
		ctx,
		func(ctx context.Context) error {
			return cs.runTransaction(ctx, fn)
		},
		cs.txRetryOptions...,
	)

	if meta.Attempts > 1 {
		cs.recordRetryMetrics(ctx, operation, meta.Attempts-1)
		cs.log(ctx, slog.LevelWarn, logMsgTxRetried, labelOperation, operation, logAttrAttempts, meta.Attempts)
	}

	return err
}

func (cs *CatalogStore) runTransaction(ctx context.Context, fn txFunc) error {
	tx, beginErr := cs.db.BeginTx(ctx)
	if beginErr != nil {
		return errors.Join(ErrBeginTransactionFailed, classify(beginErr))
	}

	if err := fn(ctx, tx); err != nil {
		cs.rollback(ctx, tx)
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return errors.Join(ErrCommittingTransactionFailed, classify(commitErr))
	}

	return nil
}

func (cs *CatalogStore) rollback(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
		cs.log(ctx, slog.LevelWarn, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

// sqlState returns the SQLSTATE of a PostgreSQL error from either pgx or lib/pq.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// classify marks driver errors worth retrying with catalog.ErrTransientConflict.
func classify(err error) error {
	switch sqlState(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %w", catalog.ErrTransientConflict, err)
	default:
		return err
	}
}

func isForeignKeyViolation(err error) bool {
	return sqlState(err) == pgerrcode.ForeignKeyViolation
}
