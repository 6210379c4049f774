package adapters

import (
	"context"
	"database/sql"
)

// sqlQuerier is the subset of *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx the adapters need.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func stdQuery(ctx context.Context, db sqlQuerier, query string, args ...any) (DBRows, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func stdExec(ctx context.Context, db sqlQuerier, query string, args ...any) (DBResult, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

var readCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// stdTx wraps *sql.Tx (sqlx.Tx embeds one) to implement DBTx.
type stdTx struct {
	tx *sql.Tx
}

func (t *stdTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	return stdQuery(ctx, t.tx, query, args...)
}

func (t *stdTx) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	return stdExec(ctx, t.tx, query, args...)
}

// Commit ignores ctx, database/sql binds the transaction to the context given to BeginTx.
func (t *stdTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *stdTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}

// stdRows wraps standard library sql.Rows to implement DBRows.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}
