// Package exporters builds the OpenTelemetry span exporters and metric
// readers the numbers service can ship telemetry to.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted in configuration.
const (
	None       = "none"
	Stdout     = "stdout"
	OTLP       = "otlp"
	Prometheus = "prometheus"
)

// TracingNames lists the span exporters NewSpanExporter accepts.
var TracingNames = []string{None, Stdout, OTLP}

// MetricsNames lists the metric exporters NewMetricsReader accepts.
var MetricsNames = []string{None, Stdout, OTLP, Prometheus}

var (
	// ErrUnknownExporter indicates an exporter name outside TracingNames or
	// MetricsNames.
	ErrUnknownExporter = errors.New("unknown exporter")

	// ErrMissingEndpoint indicates the otlp exporter was chosen without a
	// collector endpoint in the environment.
	ErrMissingEndpoint = errors.New("otlp endpoint not configured")
)

// Metrics is a metric reader plus, for prometheus, the handler that serves
// the reader's registry.
type Metrics struct {
	Reader  sdkmetric.Reader
	Handler http.Handler
}

// NewSpanExporter returns the span exporter called name. The stdout exporter
// writes to w. None yields a nil exporter.
func NewSpanExporter(ctx context.Context, name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case None, "":
		return nil, nil
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case OTLP:
		if err := requireEndpoint("TRACES"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader returns the metric reader called name. The stdout exporter
// writes to w. None yields a zero Metrics.
func NewMetricsReader(ctx context.Context, name string, w io.Writer) (Metrics, error) {
	switch name {
	case None, "":
		return Metrics{}, nil
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return Metrics{}, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return Metrics{Reader: sdkmetric.NewPeriodicReader(exp)}, nil
	case OTLP:
		if err := requireEndpoint("METRICS"); err != nil {
			return Metrics{}, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return Metrics{}, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return Metrics{Reader: sdkmetric.NewPeriodicReader(exp)}, nil
	case Prometheus:
		return newPrometheus()
	default:
		return Metrics{}, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// newPrometheus registers the exporter on a registry of its own so that
// several observers in one process never collide.
func newPrometheus() (Metrics, error) {
	registry := prometheus.NewRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return Metrics{}, fmt.Errorf("prometheus exporter: %w", err)
	}
	return Metrics{
		Reader:  exp,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// requireEndpoint checks the generic or the per-signal OTLP endpoint variable.
func requireEndpoint(signal string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_"+signal+"_ENDPOINT") != "" {
		return nil
	}
	return fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_%s_ENDPOINT",
		ErrMissingEndpoint, signal)
}
