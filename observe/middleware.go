package observe

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"
)

// Middleware records one span, the request metrics and a log line for every
// request it wraps. Incoming W3C trace context is continued when present.
type Middleware struct {
	tracer     Tracer
	metrics    Metrics
	logger     Logger
	propagator propagation.TextMapPropagator
}

// NewMiddleware creates a Middleware from its parts.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger,
		propagator: propagation.TraceContext{},
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Handler wraps next for the given route.
//
// Responses meta.Failed reports are logged at error level. Everything else,
// including a DOWN report on a health route, is logged at debug level.
func (m *Middleware) Handler(meta RouteMeta, next http.Handler) http.Handler {
	logger := m.logger.WithRoute(meta)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := m.tracer.StartSpan(parent, meta)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		m.tracer.EndSpan(span, meta, rec.status)
		m.metrics.RecordRequest(ctx, meta, rec.status, elapsed)

		status := Field{Key: "http.response.status_code", Value: rec.status}
		took := Field{Key: "duration_ms", Value: float64(elapsed.Microseconds()) / 1000}
		switch {
		case meta.Failed(rec.status):
			logger.Error(ctx, "request failed", status, took)
		case meta.Health && rec.status == http.StatusServiceUnavailable:
			logger.Debug(ctx, "health reported down", status, took)
		default:
			logger.Debug(ctx, "request completed", status, took)
		}
	})
}

// MiddlewareFromObserver builds a Middleware on the observer's tracer, meter
// and logger.
func MiddlewareFromObserver(obs *Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
