package postgresengine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

// sqlBuilder is implemented by all goqu datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

type statement struct {
	sql  string
	args []any
}

func buildStatement(ds sqlBuilder) (statement, error) {
	sqlQuery, args, toSQLErr := ds.ToSQL()
	if toSQLErr != nil {
		return statement{}, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return statement{sql: sqlQuery, args: args}, nil
}

// query runs a statement that returns rows. The caller must close the rows.
func (cs *CatalogStore) query(ctx context.Context, q adapters.Querier, action string, stmt statement) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := q.Query(ctx, stmt.sql, stmt.args...)
	cs.logQueryWithDuration(ctx, stmt.sql, action, time.Since(start))

	if queryErr != nil {
		return nil, errors.Join(ErrQueryingFailed, classify(queryErr))
	}

	return rows, nil
}

// exec runs a statement and returns the number of affected rows.
func (cs *CatalogStore) exec(ctx context.Context, q adapters.Querier, action string, stmt statement) (int64, error) {
	start := time.Now()
	result, execErr := q.Exec(ctx, stmt.sql, stmt.args...)
	cs.logQueryWithDuration(ctx, stmt.sql, action, time.Since(start))

	if execErr != nil {
		return 0, errors.Join(ErrExecutingFailed, classify(execErr))
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// queryExists runs a statement and reports whether it returned at least one row.
func (cs *CatalogStore) queryExists(ctx context.Context, q adapters.Querier, action string, stmt statement) (bool, error) {
	rows, err := cs.query(ctx, q, action, stmt)
	if err != nil {
		return false, err
	}
	defer cs.closeRows(ctx, rows)

	found := rows.Next()
	if rowsErr := rows.Err(); rowsErr != nil {
		return false, errors.Join(ErrQueryingFailed, classify(rowsErr))
	}

	return found, nil
}

// queryCount runs a statement selecting a single count column.
func (cs *CatalogStore) queryCount(ctx context.Context, q adapters.Querier, action string, stmt statement) (int64, error) {
	rows, err := cs.query(ctx, q, action, stmt)
	if err != nil {
		return 0, err
	}
	defer cs.closeRows(ctx, rows)

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, errors.Join(ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return 0, errors.Join(ErrQueryingFailed, classify(rowsErr))
	}

	return count, nil
}

func (cs *CatalogStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		cs.log(ctx, slog.LevelWarn, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}
