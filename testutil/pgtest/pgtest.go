// Package pgtest runs catalog store tests against a live PostgreSQL.
//
// Tests using it are skipped unless CELSUS_TEST_POSTGRES_DSN is set. CELSUS_TEST_ADAPTER selects the
// driver the store runs on: pgxpool (default), sqldb or sqlx.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"

	"github.com/celsus/core/catalog/postgresengine"
	"github.com/celsus/core/testutil/helper"
)

const (
	envDSN     = "CELSUS_TEST_POSTGRES_DSN"
	envAdapter = "CELSUS_TEST_ADAPTER"

	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"
)

// DSN returns the test database DSN or skips the test.
func DSN(t testing.TB) string {
	t.Helper()

	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping PostgreSQL integration test", envDSN)
	}

	return dsn
}

// NewStore creates a CatalogStore on a throw-away schema, applies the catalog schema and drops it
// again when the test ends.
func NewStore(t testing.TB, options ...postgresengine.Option) *postgresengine.CatalogStore {
	t.Helper()

	dsn := DSN(t)
	schema := "celsus_test_" + strings.ReplaceAll(helper.GivenUniqueID(t).String(), "-", "")
	options = append([]postgresengine.Option{postgresengine.WithSchemaName(schema)}, options...)

	var (
		store *postgresengine.CatalogStore
		drop  func(ctx context.Context, query string) error
		err   error
	)

	switch adapter := strings.ToLower(os.Getenv(envAdapter)); adapter {
	case typePGXPool, "":
		pool, poolErr := pgxpool.New(context.Background(), dsn)
		require.NoError(t, poolErr, "error connecting to DB pool in test setup")
		t.Cleanup(pool.Close)

		store, err = postgresengine.NewCatalogStoreFromPGXPool(pool, options...)
		drop = func(ctx context.Context, query string) error {
			_, execErr := pool.Exec(ctx, query)
			return execErr
		}

	case typeSQLDB:
		db, openErr := sql.Open("postgres", dsn)
		require.NoError(t, openErr, "error opening DB in test setup")
		t.Cleanup(func() { _ = db.Close() })

		store, err = postgresengine.NewCatalogStoreFromSQLDB(db, options...)
		drop = func(ctx context.Context, query string) error {
			_, execErr := db.ExecContext(ctx, query)
			return execErr
		}

	case typeSQLX:
		db, openErr := sqlx.Open("postgres", dsn)
		require.NoError(t, openErr, "error opening DB in test setup")
		t.Cleanup(func() { _ = db.Close() })

		store, err = postgresengine.NewCatalogStoreFromSQLX(db, options...)
		drop = func(ctx context.Context, query string) error {
			_, execErr := db.ExecContext(ctx, query)
			return execErr
		}

	default:
		t.Fatalf("unsupported adapter type from env: %s", adapter)
	}

	require.NoError(t, err, "error creating the catalog store in test setup")
	require.NoError(t, store.Migrate(context.Background()), "error migrating the test schema")

	// registered after the pool cleanup, so it runs before the connection is closed
	t.Cleanup(func() {
		_ = drop(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	})

	return store
}

// CountRows counts all rows of a catalog table in the store's schema, bypassing owner scoping.
func CountRows(t testing.TB, store *postgresengine.CatalogStore, table string) int64 {
	t.Helper()

	query, args, err := goqu.Dialect("postgres").
		From(goqu.S(store.SchemaName()).Table(table)).
		Select(goqu.COUNT(goqu.Star())).
		ToSQL()
	require.NoError(t, err, "error building the row count query")

	pool, err := pgxpool.New(context.Background(), DSN(t))
	require.NoError(t, err, "error connecting to DB pool for the row count")
	defer pool.Close()

	var count int64
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&count), "error counting rows of %s", table)

	return count
}
