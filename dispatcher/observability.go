package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/celsus/core/catalog"
)

// The dispatcher reuses the catalog observability contracts.
type (
	Logger                     = catalog.Logger
	ContextualLogger           = catalog.ContextualLogger
	MetricsCollector           = catalog.MetricsCollector
	ContextualMetricsCollector = catalog.ContextualMetricsCollector
	TracingCollector           = catalog.TracingCollector
	SpanContext                = catalog.SpanContext
)

const (
	spanNameDispatch = "dispatcher.dispatch"

	metricDispatchDuration = "dispatcher_operation_duration_seconds"
	metricDispatchCalls    = "dispatcher_operation_calls_total"
	metricDispatchErrors   = "dispatcher_errors_total"

	logMsgDispatchStarted   = "dispatching message"
	logMsgDispatchCompleted = "message dispatched"
	logMsgDispatchFailed    = "message dispatch failed"
	logMsgIgnoredRecords    = "batch holds more than one record, only the first is processed"
	logMsgUndecodableRecord = "record body is not a message"

	logAttrOperation   = "operation"
	logAttrStatus      = "status"
	logAttrErrorType   = "error_type"
	logAttrError       = "error"
	logAttrDurationMS  = "duration_ms"
	logAttrRecordCount = "record_count"
	logAttrMessageID   = "message_id"

	errorTypeUnknownOperation = "unknown_operation"
	errorTypeInvalidPayload   = "invalid_payload"
	errorTypeMissingReply     = "missing_reply_address"
	errorTypeReply            = "reply"
	errorTypeOther            = "other"
)

type level int

const (
	levelInfo level = iota
	levelWarn
	levelError
)

func (d *Dispatcher) startSpan(ctx context.Context, operation string) (context.Context, SpanContext) {
	if d.tracingCollector == nil {
		return ctx, nil
	}

	return d.tracingCollector.StartSpan(ctx, spanNameDispatch, map[string]string{logAttrOperation: operation})
}

func (d *Dispatcher) logStart(ctx context.Context, operation string) {
	d.log(ctx, levelInfo, logMsgDispatchStarted, logAttrOperation, operation)
}

func (d *Dispatcher) recordSuccess(ctx context.Context, operation string, duration time.Duration, span SpanContext) {
	d.recordMetrics(ctx, operation, catalog.StatusSuccess, duration)
	d.finishSpan(span, catalog.StatusSuccess, duration, nil)
	d.log(ctx, levelInfo, logMsgDispatchCompleted,
		logAttrOperation, operation,
		logAttrDurationMS, float64(duration.Nanoseconds())/1e6,
	)
}

func (d *Dispatcher) recordError(ctx context.Context, operation string, err error, duration time.Duration, span SpanContext) {
	status := statusOf(err)
	errorType := errorTypeOf(err)

	d.recordMetrics(ctx, operation, status, duration)
	d.incrementCounter(ctx, metricDispatchErrors, map[string]string{
		logAttrOperation: operation,
		logAttrErrorType: errorType,
	})
	d.finishSpan(span, status, duration, err)
	d.log(ctx, levelError, logMsgDispatchFailed,
		logAttrOperation, operation,
		logAttrStatus, status,
		logAttrErrorType, errorType,
		logAttrError, err.Error(),
	)
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
	case errors.Is(err, ErrUnknownOperation):
		return errorTypeUnknownOperation
	case errors.Is(err, ErrInvalidPayload):
		return errorTypeInvalidPayload
	case errors.Is(err, ErrMissingReplyAddress):
		return errorTypeMissingReply
	case errors.Is(err, ErrReplyFailed):
		return errorTypeReply
	default:
		return errorTypeOther
	}
}

func (d *Dispatcher) recordMetrics(ctx context.Context, operation, status string, duration time.Duration) {
	if d.metricsCollector == nil {
		return
	}

	labels := map[string]string{logAttrOperation: operation, logAttrStatus: status}

	if contextual, ok := d.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricDispatchDuration, duration, labels)
		contextual.IncrementCounterContext(ctx, metricDispatchCalls, labels)

		return
	}

	d.metricsCollector.RecordDuration(metricDispatchDuration, duration, labels)
	d.metricsCollector.IncrementCounter(metricDispatchCalls, labels)
}

func (d *Dispatcher) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if d.metricsCollector == nil {
		return
	}

	if contextual, ok := d.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	d.metricsCollector.IncrementCounter(metric, labels)
}

func (d *Dispatcher) finishSpan(span SpanContext, status string, duration time.Duration, err error) {
	if d.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{logAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6)}
	if err != nil {
		attrs[logAttrError] = err.Error()
	}

	d.tracingCollector.FinishSpan(span, status, attrs)
}

func (d *Dispatcher) log(ctx context.Context, lvl level, msg string, args ...any) {
	if d.contextualLogger != nil {
		switch lvl {
		case levelWarn:
			d.contextualLogger.WarnContext(ctx, msg, args...)
		case levelError:
			d.contextualLogger.ErrorContext(ctx, msg, args...)
		default:
			d.contextualLogger.InfoContext(ctx, msg, args...)
		}

		return
	}

	if d.logger == nil {
		return
	}

	switch lvl {
	case levelWarn:
		d.logger.Warn(msg, args...)
	case levelError:
		d.logger.Error(msg, args...)
	default:
		d.logger.Info(msg, args...)
	}
}
