package postgresengine

import (
	"regexp"
	"time"

	"github.com/celsus/core/catalog"
)

var plainIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Option defines a functional option for configuring CatalogStore.
type Option func(*CatalogStore) error

// WithSchemaName sets the PostgreSQL schema holding the catalog tables.
func WithSchemaName(schemaName string) Option {
	return func(cs *CatalogStore) error {
		if !plainIdentifier.MatchString(schemaName) {
			return ErrInvalidSchemaName
		}

		cs.schemaName = schemaName

		return nil
	}
}

// WithThumbnailStore makes book writes persist thumbnail data and book deletes remove it.
func WithThumbnailStore(store ThumbnailStore) Option {
	return func(cs *CatalogStore) error {
		if store == nil {
			return ErrNilThumbnailStore
		}

		cs.thumbnails = store

		return nil
	}
}

// WithTransactionRetries sets how often a transaction is attempted when PostgreSQL reports
// a serialization failure or a deadlock, and the base delay of the exponential backoff.
func WithTransactionRetries(maxAttempts int, baseDelay time.Duration) Option {
	return func(cs *CatalogStore) error {
		if maxAttempts <= 0 {
			return ErrInvalidRetryAttempts
		}

		cs.txRetryOptions = []catalog.RetryOption{
			catalog.WithMaxAttempts(maxAttempts),
			catalog.WithBaseDelay(max(baseDelay, 0)),
		}

		return nil
	}
}

// WithLogger sets the logger for the CatalogStore.
//
// Debug level: SQL statements with execution timing
// Info level: completed operations with duration
// Warn level: rollback or cleanup failures, retried transactions
// Error level: failures that make an operation fail.
func WithLogger(logger catalog.Logger) Option {
	return func(cs *CatalogStore) error {
		cs.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger catalog.ContextualLogger) Option {
	return func(cs *CatalogStore) error {
		cs.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the CatalogStore.
func WithMetrics(collector catalog.MetricsCollector) Option {
	return func(cs *CatalogStore) error {
		cs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the CatalogStore.
func WithTracing(collector catalog.TracingCollector) Option {
	return func(cs *CatalogStore) error {
		cs.tracingCollector = collector
		return nil
	}
}
