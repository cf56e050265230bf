package observe

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RouteMeta identifies an HTTP route for telemetry purposes.
type RouteMeta struct {
	Method string // HTTP method (optional)
	Route  string // Route pattern, e.g. "/" or "/health/{name}" (required)

	// Health marks a health report route. A 503 there is a DOWN report,
	// not a server fault.
	Health bool
}

// Failed reports whether status counts as a server fault on this route.
func (m RouteMeta) Failed(status int) bool {
	if m.Health && status == http.StatusServiceUnavailable {
		return false
	}
	return status >= 500
}

// SpanName returns the deterministic span name for this route.
// Format: "<METHOD> <route>" or "<route>"
func (m RouteMeta) SpanName() string {
	if m.Method != "" {
		return m.Method + " " + m.Route
	}
	return m.Route
}

// Tracer wraps OpenTelemetry tracing with route-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new server span for the route.
	StartSpan(ctx context.Context, meta RouteMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the response status.
	EndSpan(span trace.Span, meta RouteMeta, status int)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with route metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RouteMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", meta.Route),
	}
	if meta.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", meta.Method))
	}
	if meta.Health {
		attrs = append(attrs, attribute.Bool("numbers.health_route", true))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan ends the span. Statuses meta.Failed reports mark the span as failed.
func (t *tracerImpl) EndSpan(span trace.Span, meta RouteMeta, status int) {
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if meta.Failed(status) {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
