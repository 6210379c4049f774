package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/celsus/core/catalog"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db      *sqlx.DB
	replica *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// NewSQLXAdapterWithReplica creates a new SQLX adapter with a replica for eventually consistent reads.
func NewSQLXAdapterWithReplica(db *sqlx.DB, replica *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db, replica: replica}
}

// Query executes a query using the sqlx.DB and returns wrapped rows.
func (s *SQLXAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	if s.replica != nil && catalog.GetConsistencyLevel(ctx) == catalog.EventualConsistency {
		return stdQuery(ctx, s.replica, query, args...)
	}

	return stdQuery(ctx, s.db, query, args...)
}

// Exec executes a statement using the sqlx.DB and returns the wrapped result.
func (s *SQLXAdapter) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	return stdExec(ctx, s.db, query, args...)
}

// BeginTx starts a read committed transaction through sqlx.
func (s *SQLXAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, readCommitted)
	if err != nil {
		return nil, err
	}

	return &stdTx{tx: tx.Tx}, nil
}
