package config

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/celsus/core/catalog/postgresengine"
)

const driverPostgres = "postgres"

var (
	// ErrConnectingFailed is returned when a database connection cannot be established.
	ErrConnectingFailed = errors.New("connecting to the database failed")

	// ErrUnsupportedAdapter is returned for an unknown Postgres.Adapter value.
	ErrUnsupportedAdapter = errors.New("unsupported postgres adapter")
)

// PGXPoolConfig creates a pgxpool.Config for dsn with the configured pool limits.
func (p Postgres) PGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	dbConfig.MaxConns = p.MaxConns
	dbConfig.MinConns = p.MinConns
	dbConfig.MaxConnLifetime = p.MaxConnLifetime
	dbConfig.MaxConnIdleTime = p.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = p.ConnectTimeout

	return dbConfig, nil
}

// NewPGXPool creates and pings a pgx pool for dsn.
func (p Postgres) NewPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	dbConfig, err := p.PGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return pool, nil
}

// NewSQLDB opens and pings a *sql.DB for dsn on the lib/pq driver.
func (p Postgres) NewSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	p.configureSQLPool(db)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return db, nil
}

// NewSQLX opens and pings a *sqlx.DB for dsn on the lib/pq driver.
func (p Postgres) NewSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPostgres, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	p.configureSQLPool(db.DB)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return db, nil
}

func closePool(pool *pgxpool.Pool) error {
	pool.Close()
	return nil
}

func (p Postgres) configureSQLPool(db *sql.DB) {
	db.SetMaxOpenConns(int(p.MaxConns))
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.MaxConnLifetime)
	db.SetConnMaxIdleTime(p.MaxConnIdleTime)
}

// OpenCatalogStore connects with the configured adapter, adding the replica when ReplicaDSN is set,
// and creates a CatalogStore on the configured schema. The returned function closes the connections.
func (p Postgres) OpenCatalogStore(
	ctx context.Context,
	options ...postgresengine.Option,
) (*postgresengine.CatalogStore, func(), error) {
	options = append([]postgresengine.Option{postgresengine.WithSchemaName(p.Schema)}, options...)

	switch p.Adapter {
	case AdapterPGXPool, "":
		return openWith(ctx, p, p.NewPGXPool, closePool,
			postgresengine.NewCatalogStoreFromPGXPool, postgresengine.NewCatalogStoreFromPGXPoolAndReplica, options)

	case AdapterSQLDB:
		return openWith(ctx, p, p.NewSQLDB, (*sql.DB).Close,
			postgresengine.NewCatalogStoreFromSQLDB, postgresengine.NewCatalogStoreFromSQLDBAndReplica, options)

	case AdapterSQLX:
		return openWith(ctx, p, p.NewSQLX, (*sqlx.DB).Close,
			postgresengine.NewCatalogStoreFromSQLX, postgresengine.NewCatalogStoreFromSQLXAndReplica, options)

	default:
		return nil, nil, ErrUnsupportedAdapter
	}
}

func openWith[DB any](
	ctx context.Context,
	p Postgres,
	connect func(context.Context, string) (DB, error),
	closeDB func(DB) error,
	single func(DB, ...postgresengine.Option) (*postgresengine.CatalogStore, error),
	withReplica func(DB, DB, ...postgresengine.Option) (*postgresengine.CatalogStore, error),
	options []postgresengine.Option,
) (*postgresengine.CatalogStore, func(), error) {
	primary, err := connect(ctx, p.DSN)
	if err != nil {
		return nil, nil, err
	}

	if p.ReplicaDSN == "" {
		store, storeErr := single(primary, options...)
		if storeErr != nil {
			_ = closeDB(primary)
			return nil, nil, storeErr
		}

		return store, func() { _ = closeDB(primary) }, nil
	}

	replica, err := connect(ctx, p.ReplicaDSN)
	if err != nil {
		_ = closeDB(primary)
		return nil, nil, err
	}

	closeAll := func() {
		_ = closeDB(replica)
		_ = closeDB(primary)
	}

	store, err := withReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	return store, closeAll, nil
}
