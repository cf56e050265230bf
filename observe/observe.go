package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/numbers/observe/exporters"
)

// Config describes the telemetry of one service instance.
type Config struct {
	ServiceName string
	Version     string

	// Attributes describe the instance, e.g. its generator settings. They
	// are attached to the telemetry resource and to every log line.
	Attributes []Field

	Tracing TracingConfig
	Metrics MetricsConfig
	Logging LoggingConfig

	// Output receives log lines and stdout exporter output. Defaults to
	// os.Stderr for logs and os.Stdout for exporters.
	Output io.Writer
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // one of exporters.TracingNames
	SamplePct float64 // ratio of new traces sampled, 0.0-1.0
}

// MetricsConfig selects the metric exporter.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // one of exporters.MetricsNames
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

// Validate checks the settings of every enabled signal.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.Tracing.Enabled {
		if !validName(exporters.TracingNames, c.Tracing.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidSamplePct, c.Tracing.SamplePct)
		}
	}
	if c.Metrics.Enabled && !validName(exporters.MetricsNames, c.Metrics.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
	}
	if c.Logging.Enabled && c.Logging.Level != "" {
		if _, ok := logLevels[c.Logging.Level]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
		}
	}
	return nil
}

func validName(names []string, name string) bool {
	return name == "" || slices.Contains(names, name)
}

// Logger is the structured logger used across the service. Implementations
// are safe for concurrent use and never panic.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every line.
	With(fields ...Field) Logger

	// WithRoute returns a logger that tags every line with the route.
	WithRoute(meta RouteMeta) Logger
}

// Field is one structured log field.
type Field struct {
	Key   string
	Value any
}

// Observer owns the tracer, meter and logger of the service and the
// providers behind them.
type Observer struct {
	tracer         trace.Tracer
	meter          metric.Meter
	logger         Logger
	metricsHandler http.Handler
	shutdown       []func(context.Context) error
}

// NewObserver validates cfg and starts the enabled signals. Enabled
// providers are installed as the otel globals.
func NewObserver(ctx context.Context, cfg Config) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(resourceAttributes(cfg)...),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	exportTo := cfg.Output
	if exportTo == nil {
		exportTo = os.Stdout
	}

	obs := &Observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewSpanExporter(ctx, cfg.Tracing.Exporter, exportTo)
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct))),
		}
		if exp != nil {
			opts = append(opts, sdktrace.WithBatcher(exp))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		m, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, exportTo)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("metrics: %w", err)
		}
		opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if m.Reader != nil {
			opts = append(opts, sdkmetric.WithReader(m.Reader))
		}
		mp := sdkmetric.NewMeterProvider(opts...)
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.metricsHandler = m.Handler
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	if cfg.Logging.Enabled {
		logTo := cfg.Output
		if logTo == nil {
			logTo = os.Stderr
		}
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, logTo).With(
			append([]Field{
				{Key: "service.name", Value: cfg.ServiceName},
				{Key: "service.version", Value: cfg.Version},
			}, cfg.Attributes...)...,
		)
	}

	return obs, nil
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	kvs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	}
	for _, f := range cfg.Attributes {
		kvs = append(kvs, fieldAttribute(f))
	}
	return kvs
}

func fieldAttribute(f Field) attribute.KeyValue {
	switch v := f.Value.(type) {
	case string:
		return attribute.String(f.Key, v)
	case []string:
		return attribute.StringSlice(f.Key, v)
	case bool:
		return attribute.Bool(f.Key, v)
	case int:
		return attribute.Int(f.Key, v)
	case int32:
		return attribute.Int64(f.Key, int64(v))
	case int64:
		return attribute.Int64(f.Key, v)
	case float64:
		return attribute.Float64(f.Key, v)
	default:
		return attribute.String(f.Key, fmt.Sprint(v))
	}
}

// Tracer returns the service tracer, a no-op tracer when tracing is off.
func (o *Observer) Tracer() trace.Tracer { return o.tracer }

// Meter returns the service meter, a no-op meter when metrics are off.
func (o *Observer) Meter() metric.Meter { return o.meter }

// Logger returns the service logger, tagged with the instance attributes.
func (o *Observer) Logger() Logger { return o.logger }

// MetricsHandler returns the scrape handler of the prometheus exporter, or
// nil for any other exporter.
func (o *Observer) MetricsHandler() http.Handler { return o.metricsHandler }

// Shutdown flushes and stops the providers in reverse start order.
func (o *Observer) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(o.shutdown) - 1; i >= 0; i-- {
		if err := o.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdown = nil
	return errors.Join(errs...)
}
