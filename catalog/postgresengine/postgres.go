package postgresengine

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

const (
	defaultSchemaName = "celsus_core"
	dialectPostgres   = "postgres"

	tableLibrary     = "library"
	tableBook        = "book"
	tableBooksSearch = "books_search"
	aliasLibrary     = "L"
	aliasBook        = "B"
	aliasSearch      = "S"

	colID           = "id"
	colUserID       = "user_id"
	colName         = "name"
	colDescription  = "description"
	colLibraryID    = "library_id"
	colTitle        = "title"
	colISBN10       = "isbn10"
	colISBN13       = "isbn13"
	colThumbnail    = "thumbnail"
	colAuthors      = "authors"
	colTags         = "tags"
	colLanguage     = "language"
	colBookSet      = "book_set"
	colBookSetOrder = "book_set_order"
	colHash         = "hash"
	colLendingID    = "lending_id"
	colDocument     = "document"
	colBooksCount   = "books_count"
	colLibraryName  = "library_name"
	colTotal        = "total"

	castText       = "?::text"
	castArrayJSON  = "array_to_json(?)::text"
	emptyTextArray = "'{}'::text[]"
	searchMatch    = "? @@ to_tsquery('simple', unaccent(?))"
)

// ThumbnailStore keeps the image data of book thumbnails outside the database.
// thumbnails/s3store.Store implements it.
type ThumbnailStore interface {
	SaveImage(ctx context.Context, ownerID string, bookID uuid.UUID, data []byte) error
	GetImage(ctx context.Context, ownerID string, bookID uuid.UUID) ([]byte, error)
	DeleteImage(ctx context.Context, ownerID string, bookID uuid.UUID) error
}

// CatalogStore persists libraries and books of many owners in PostgreSQL.
// Every operation is scoped to the owner of the AuthorizationGuard it receives.
type CatalogStore struct {
	db               adapters.DBAdapter
	builder          goqu.DialectWrapper
	schemaName       string
	thumbnails       ThumbnailStore
	txRetryOptions   []catalog.RetryOption
	logger           catalog.Logger
	contextualLogger catalog.ContextualLogger
	metricsCollector catalog.MetricsCollector
	tracingCollector catalog.TracingCollector
}

// NewCatalogStoreFromPGXPool creates a new CatalogStore using a pgx Pool with optional configuration.
func NewCatalogStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewPGXAdapter(db), options...)
}

// NewCatalogStoreFromPGXPoolAndReplica creates a CatalogStore whose reads may go to the replica pool
// when the context asks for catalog.EventualConsistency.
func NewCatalogStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewCatalogStoreFromSQLDB creates a new CatalogStore using a sql.DB with optional configuration.
func NewCatalogStoreFromSQLDB(db *sql.DB, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewSQLAdapter(db), options...)
}

// NewCatalogStoreFromSQLDBAndReplica creates a CatalogStore on sql.DB connections with a read replica.
func NewCatalogStoreFromSQLDBAndReplica(db *sql.DB, replica *sql.DB, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewSQLAdapterWithReplica(db, replica), options...)
}

// NewCatalogStoreFromSQLX creates a new CatalogStore using a sqlx.DB with optional configuration.
func NewCatalogStoreFromSQLX(db *sqlx.DB, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewSQLXAdapter(db), options...)
}

// NewCatalogStoreFromSQLXAndReplica creates a CatalogStore on sqlx.DB connections with a read replica.
func NewCatalogStoreFromSQLXAndReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*CatalogStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newCatalogStore(adapters.NewSQLXAdapterWithReplica(db, replica), options...)
}

func newCatalogStore(db adapters.DBAdapter, options ...Option) (*CatalogStore, error) {
	cs := &CatalogStore{
		db:         db,
		builder:    goqu.Dialect(dialectPostgres),
		schemaName: defaultSchemaName,
	}

	for _, option := range options {
		if err := option(cs); err != nil {
			return nil, err
		}
	}

	return cs, nil
}

// SchemaName returns the PostgreSQL schema holding the catalog tables.
func (cs *CatalogStore) SchemaName() string {
	return cs.schemaName
}
