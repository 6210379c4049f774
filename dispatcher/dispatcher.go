package dispatcher

import (
	"context"
	"errors"
	"time"
)

// ReplyAddressAttribute is the message attribute that carries the reply address.
const ReplyAddressAttribute = "replyAddress"

// Record is one inbound message as delivered by the transport.
type Record struct {
	MessageID  string
	Body       []byte
	Attributes map[string]string
}

// envelope is the part of a message body the dispatcher reads itself.
type envelope struct {
	Operation    string `json:"operation"`
	ReplyAddress string `json:"replyAddress"`
}

// Dispatcher looks up the handler of an operation and runs it with full observability.
type Dispatcher struct {
	registry         Registry
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(d *Dispatcher) error {
		d.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(d *Dispatcher) error {
		d.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector TracingCollector) Option {
	return func(d *Dispatcher) error {
		d.tracingCollector = collector
		return nil
	}
}

// New creates a Dispatcher over an already built registry.
func New(registry Registry, options ...Option) (*Dispatcher, error) {
	d := &Dispatcher{registry: registry}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Dispatch runs the handler registered for the operation.
// An unregistered operation fails with *UnknownOperationError before anything else happens.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload []byte, replyAddress string) error {
	start := time.Now()
	ctx, span := d.startSpan(ctx, operation)
	d.logStart(ctx, operation)

	handler, ok := d.registry.Lookup(operation)
	if !ok {
		err := &UnknownOperationError{Operation: operation}
		d.recordError(ctx, operation, err, time.Since(start), span)

		return err
	}

	if err := handler(ctx, payload, replyAddress); err != nil {
		d.recordError(ctx, operation, err, time.Since(start), span)
		return err
	}

	d.recordSuccess(ctx, operation, time.Since(start), span)

	return nil
}

// HandleRecords dispatches the first record of a batch.
// The reply address comes from the record's replyAddress attribute, falling back to a
// replyAddress field of the body.
func (d *Dispatcher) HandleRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	if len(records) > 1 {
		d.log(ctx, levelWarn, logMsgIgnoredRecords, logAttrRecordCount, len(records))
	}

	record := records[0]

	var env envelope
	if err := json.Unmarshal(record.Body, &env); err != nil {
		err = errors.Join(ErrInvalidPayload, err)
		d.log(ctx, levelError, logMsgUndecodableRecord, logAttrMessageID, record.MessageID, logAttrError, err.Error())

		return err
	}

	replyAddress := record.Attributes[ReplyAddressAttribute]
	if replyAddress == "" {
		replyAddress = env.ReplyAddress
	}

	return d.Dispatch(ctx, env.Operation, record.Body, replyAddress)
}
