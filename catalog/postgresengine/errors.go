package postgresengine

import "errors"

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrInvalidSchemaName is returned when a schema name is empty or not a plain identifier.
	ErrInvalidSchemaName = errors.New("schema name must be a plain identifier")

	// ErrNilThumbnailStore is returned when WithThumbnailStore receives nil.
	ErrNilThumbnailStore = errors.New("thumbnail store must not be nil")

	// ErrInvalidRetryAttempts is returned when WithTransactionRetries receives a non-positive count.
	ErrInvalidRetryAttempts = errors.New("transaction attempts must be positive")

	ErrBuildingQueryFailed         = errors.New("building query failed")
	ErrQueryingFailed              = errors.New("querying the database failed")
	ErrExecutingFailed             = errors.New("executing statement failed")
	ErrScanningDBRowFailed         = errors.New("scanning db row failed")
	ErrDecodingRowFailed           = errors.New("decoding db row failed")
	ErrGettingRowsAffectedFailed   = errors.New("getting rows affected failed")
	ErrBeginTransactionFailed      = errors.New("beginning transaction failed")
	ErrCommittingTransactionFailed = errors.New("committing transaction failed")
	ErrMigrationFailed             = errors.New("applying the catalog schema failed")

	// ErrThumbnailFailed wraps failures of the configured ThumbnailStore.
	ErrThumbnailFailed = errors.New("storing thumbnail failed")
)
