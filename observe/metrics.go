package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request and health check metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records an HTTP request with its status and duration.
	RecordRequest(ctx context.Context, meta RouteMeta, status int, duration time.Duration)

	// RecordCheck records one health check outcome.
	RecordCheck(ctx context.Context, name, status string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	requestCount metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	checkCount   metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"http.server.errors",
		metric.WithDescription("Total number of HTTP requests that failed with a server fault"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkCount, err := meter.Int64Counter(
		"health.check.total",
		metric.WithDescription("Total number of health check evaluations"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requestCount: requestCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		checkCount:   checkCount,
	}, nil
}

// RecordRequest records metrics for an HTTP request.
func (m *metricsImpl) RecordRequest(ctx context.Context, meta RouteMeta, status int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", meta.Route),
		attribute.Int("http.response.status_code", status),
	}
	if meta.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", meta.Method))
	}

	opt := metric.WithAttributes(attrs...)

	m.requestCount.Add(ctx, 1, opt)
	if meta.Failed(status) {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// RecordCheck records a health check outcome.
func (m *metricsImpl) RecordCheck(ctx context.Context, name, status string) {
	m.checkCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check.name", name),
		attribute.String("check.status", status),
	))
}
