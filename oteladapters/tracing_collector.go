package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/celsus/core/catalog"
)

// TracingCollector is a catalog.TracingCollector on an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector that starts its spans on the tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span as a child of the span in ctx, if any.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, catalog.SpanContext) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributesOf(attrs)...))

	return ctx, &OTelSpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span.
// Spans not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx catalog.SpanContext, status string, attrs map[string]string) {
	otelSpan, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpan.span.SetAttributes(attributesOf(attrs)...)
	otelSpan.SetStatus(status)
	otelSpan.span.End()
}

var _ catalog.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span as a catalog.SpanContext.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the catalog status values to span status codes.
// Unknown values are kept as a "status" attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case catalog.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case catalog.StatusError:
		s.span.SetStatus(codes.Error, "operation failed")
	case catalog.StatusCanceled:
		s.span.SetStatus(codes.Error, "operation canceled")
	case catalog.StatusTimeout:
		s.span.SetStatus(codes.Error, "operation timed out")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ catalog.SpanContext = (*OTelSpanContext)(nil)
