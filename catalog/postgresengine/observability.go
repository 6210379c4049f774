package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/celsus/core/catalog"
)

const (
	spanNamePrefix = "catalog."

	metricOperationDuration  = "catalog_operation_duration_seconds"
	metricOperationCalls     = "catalog_operation_calls_total"
	metricDatabaseErrors     = "catalog_database_errors_total"
	metricTransactionRetries = "catalog_transaction_retries_total"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	spanAttrDurationMS = "duration_ms"
	spanAttrOwnerID    = "owner_id"

	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "catalog operation: "
	logMsgOperationFailed  = "catalog operation failed: "
	logMsgOperationDenied  = "catalog operation rejected: "
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgTxRetried        = "transaction retried after transient conflict"
	logMsgThumbnailCleanup = "failed to delete thumbnail"
	logAttrError           = "error"
	logAttrErrorType       = "error_type"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logAttrOwnerID         = "owner_id"
	logAttrLibraryID       = "library_id"
	logAttrBookID          = "book_id"
	logAttrFound           = "found"
	logAttrCount           = "count"
	logAttrTotal           = "total"
	logAttrAttempts        = "attempts"

	operationListLibraries       = "list_libraries"
	operationCreateLibrary       = "create_library"
	operationUpdateLibrary       = "update_library"
	operationDeleteLibrary       = "delete_library"
	operationGetLibrary          = "get_library"
	operationGetBook             = "get_book"
	operationGetThumbnail        = "get_thumbnail"
	operationListBooks           = "list_books_from_library"
	operationSearchBooks         = "search_books"
	operationCreateBook          = "create_book"
	operationUpdateBook          = "update_book"
	operationDeleteBook          = "delete_book"
	operationLendingPending      = "transition_to_lending_pending"
	operationLendingConfirmed    = "transition_to_lending_confirmed"
	operationLendingNotLent      = "transition_to_not_lent"
	operationMigrate             = "migrate"
	errorTypeBuildQuery          = "build_query"
	errorTypeDatabase            = "database"
	errorTypeScan                = "row_scan"
	errorTypeTransaction         = "transaction"
	errorTypeTransientConflict   = "transient_conflict"
	errorTypeValidation          = "validation"
	errorTypeReferential         = "referential"
	errorTypeThumbnail           = "thumbnail"
	errorTypeMissingOwner        = "missing_owner"
	errorTypeInvalidLendingState = "invalid_lending_state"
	errorTypeOther               = "other"
)

// operationObserver wraps one public CatalogStore call with a span, metrics and a closing log record.
type operationObserver struct {
	cs        *CatalogStore
	ctx       context.Context
	operation string
	span      catalog.SpanContext
	start     time.Time
}

func (cs *CatalogStore) startOperation(ctx context.Context, operation string, guard catalog.AuthorizationGuard) (*operationObserver, context.Context) {
	var span catalog.SpanContext
	if cs.tracingCollector != nil {
		ctx, span = cs.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
			labelOperation:  operation,
			spanAttrOwnerID: guard.OwnerID(),
		})
	}

	return &operationObserver{
		cs:        cs,
		ctx:       ctx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, ctx
}

func (o *operationObserver) finishSuccess(logArgs ...any) {
	duration := time.Since(o.start)

	o.cs.recordOperationMetrics(o.ctx, o.operation, catalog.StatusSuccess, duration)
	o.cs.finishSpan(o.span, catalog.StatusSuccess, map[string]string{spanAttrDurationMS: formatMS(duration)})

	args := append([]any{logAttrDurationMS, toMilliseconds(duration)}, logArgs...)
	o.cs.log(o.ctx, slog.LevelInfo, logMsgOperation+o.operation, args...)
}

func (o *operationObserver) finishError(err error) {
	duration := time.Since(o.start)
	status := statusOf(err)
	errorType := errorTypeOf(err)

	o.cs.recordOperationMetrics(o.ctx, o.operation, status, duration)
	o.cs.finishSpan(o.span, status, map[string]string{
		labelErrorType:     errorType,
		spanAttrDurationMS: formatMS(duration),
	})

	switch errorType {
	case errorTypeValidation, errorTypeReferential, errorTypeMissingOwner, errorTypeInvalidLendingState:
		o.cs.log(o.ctx, slog.LevelInfo, logMsgOperationDenied+o.operation, logAttrError, err.Error(), logAttrErrorType, errorType)
	default:
		o.cs.recordErrorMetrics(o.ctx, o.operation, errorType)
		o.cs.log(o.ctx, slog.LevelError, logMsgOperationFailed+o.operation, logAttrError, err.Error(), logAttrErrorType, errorType)
	}
}

// finish is a convenience for the common "return result, err" shape.
func (o *operationObserver) finish(err error, logArgs ...any) {
	if err != nil {
		o.finishError(err)
		return
	}

	o.finishSuccess(logArgs...)
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return catalog.StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return catalog.StatusTimeout
	default:
		return catalog.StatusError
	}
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return errorTypeValidation
	case errors.Is(err, catalog.ErrLibraryNotFound):
		return errorTypeReferential
	case errors.Is(err, catalog.ErrMissingOwner):
		return errorTypeMissingOwner
	case errors.Is(err, catalog.ErrInvalidLendingID):
		return errorTypeInvalidLendingState
	case errors.Is(err, catalog.ErrTransientConflict):
		return errorTypeTransientConflict
	case errors.Is(err, ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, ErrScanningDBRowFailed), errors.Is(err, ErrDecodingRowFailed):
		return errorTypeScan
	case errors.Is(err, ErrBeginTransactionFailed), errors.Is(err, ErrCommittingTransactionFailed):
		return errorTypeTransaction
	case errors.Is(err, ErrThumbnailFailed):
		return errorTypeThumbnail
	case errors.Is(err, ErrQueryingFailed), errors.Is(err, ErrExecutingFailed), errors.Is(err, ErrGettingRowsAffectedFailed):
		return errorTypeDatabase
	default:
		return errorTypeOther
	}
}

func (cs *CatalogStore) recordOperationMetrics(ctx context.Context, operation, status string, duration time.Duration) {
	if cs.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextualCollector, ok := cs.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, metricOperationCalls, labels)
		return
	}

	cs.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	cs.metricsCollector.IncrementCounter(metricOperationCalls, labels)
}

func (cs *CatalogStore) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	cs.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
		labelOperation: operation,
		labelStatus:    catalog.StatusError,
		labelErrorType: errorType,
	})
}

func (cs *CatalogStore) recordRetryMetrics(ctx context.Context, operation string, retries int) {
	for range retries {
		cs.incrementCounter(ctx, metricTransactionRetries, map[string]string{labelOperation: operation})
	}
}

func (cs *CatalogStore) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if cs.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := cs.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	cs.metricsCollector.IncrementCounter(metric, labels)
}

func (cs *CatalogStore) finishSpan(span catalog.SpanContext, status string, attrs map[string]string) {
	if cs.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(status)
	cs.tracingCollector.FinishSpan(span, status, attrs)
}

// log prefers the contextual logger so that trace ids end up in the record.
func (cs *CatalogStore) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if cs.contextualLogger != nil {
		switch level {
		case slog.LevelDebug:
			cs.contextualLogger.DebugContext(ctx, msg, args...)
		case slog.LevelInfo:
			cs.contextualLogger.InfoContext(ctx, msg, args...)
		case slog.LevelWarn:
			cs.contextualLogger.WarnContext(ctx, msg, args...)
		default:
			cs.contextualLogger.ErrorContext(ctx, msg, args...)
		}

		return
	}

	if cs.logger == nil {
		return
	}

	switch level {
	case slog.LevelDebug:
		cs.logger.Debug(msg, args...)
	case slog.LevelInfo:
		cs.logger.Info(msg, args...)
	case slog.LevelWarn:
		cs.logger.Warn(msg, args...)
	default:
		cs.logger.Error(msg, args...)
	}
}

func (cs *CatalogStore) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	cs.log(ctx, slog.LevelDebug, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMS(d time.Duration) string {
	return fmt.Sprintf("%.2f", toMilliseconds(d))
}
