// Package server wires the numbers generator and health aggregator into an
// HTTP handler and runs it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/numbers/health"
	"github.com/jonwraymond/numbers/numbers"
	"github.com/jonwraymond/numbers/observe"
	"github.com/jonwraymond/numbers/resilience"
)

// Routes served in addition to the health endpoints.
const (
	NumbersRoute = "/{$}"
	MetricsRoute = "/metrics"
)

// readHeaderTimeout bounds slow clients.
const readHeaderTimeout = 5 * time.Second

// Options configures New.
type Options struct {
	// Generator serves GET /. It is shared by all requests.
	Generator *numbers.Generator

	// Aggregator serves the health endpoints.
	Aggregator *health.Aggregator

	// Middleware wraps every route when set. Health routes are marked so
	// that a DOWN report is not treated as a server fault.
	Middleware *observe.Middleware

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// Guard sheds load on GET / when set. Health and metrics routes are
	// never guarded.
	Guard *resilience.Guard

	// Logger receives generation failures. Defaults to a no-op logger.
	Logger observe.Logger
}

// New builds the service handler.
func New(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	mux := http.NewServeMux()
	handle := func(meta observe.RouteMeta, h http.Handler) {
		pattern := meta.Method + " " + meta.Route
		if opts.Middleware != nil {
			meta.Route = strings.TrimSuffix(meta.Route, "{$}")
			h = opts.Middleware.Handler(meta, h)
		}
		mux.Handle(pattern, h)
	}

	var numbersHandler http.Handler = NumbersHandler(opts.Generator, logger)
	if opts.Guard != nil {
		numbersHandler = opts.Guard.Handler(numbersHandler)
	}
	handle(observe.RouteMeta{Method: http.MethodGet, Route: NumbersRoute}, numbersHandler)
	for _, route := range health.Routes(opts.Aggregator) {
		handle(observe.RouteMeta{Method: route.Method, Route: route.Path, Health: true}, route.Handler)
	}
	if opts.MetricsHandler != nil {
		handle(observe.RouteMeta{Method: http.MethodGet, Route: MetricsRoute}, opts.MetricsHandler)
	}

	return mux
}

// NumbersHandler serves a fresh list of random integers as a JSON array.
// A misconfigured generator (numbers.ErrMisconfigured) yields 500 with
// {"error": "..."}.
func NumbersHandler(gen *numbers.Generator, logger observe.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := gen.NextInts()
		if err != nil {
			logger.Error(r.Context(), "generate numbers",
				observe.Field{Key: "error", Value: err.Error()},
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, values)
	}
}

// RecordChecks returns an aggregator hook that counts check outcomes.
func RecordChecks(metrics observe.Metrics) func(context.Context, health.Result) {
	return func(ctx context.Context, result health.Result) {
		metrics.RecordCheck(ctx, result.Name, result.Status.String())
	}
}

// LogRejections returns a guard hook that logs shed requests.
func LogRejections(logger observe.Logger) func(*http.Request, error) {
	return func(r *http.Request, err error) {
		logger.Warn(r.Context(), "request rejected",
			observe.Field{Key: "http.route", Value: r.URL.Path},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// Run listens on addr and serves handler until ctx is done.
func Run(ctx context.Context, addr string, handler http.Handler, logger observe.Logger, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ctx, ln, handler, logger, shutdownTimeout)
}

// Serve serves handler on ln until ctx is done, then shuts down gracefully,
// waiting at most shutdownTimeout for in-flight requests.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger observe.Logger, shutdownTimeout time.Duration) error {
	if logger == nil {
		logger = observe.NopLogger()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		logger.Info(shutdownCtx, "shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
