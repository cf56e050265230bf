package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/numbers/health"
	"github.com/jonwraymond/numbers/numbers"
	"github.com/jonwraymond/numbers/observe"
	"github.com/jonwraymond/numbers/resilience"
)

func alwaysUp() float64 { return 0.5 }

func newTestHandler(t *testing.T, cfg numbers.Config, rate float64) http.Handler {
	t.Helper()
	gen := numbers.NewGenerator(cfg)

	agg := health.NewAggregator()
	agg.Register(numbers.ConfigProbeName, numbers.NewConfigProbe(gen))
	agg.Register(numbers.RandomFailureProbeName, numbers.NewRandomFailureProbe(rate, numbers.WithFloat64(alwaysUp)))

	return New(Options{Generator: gen, Aggregator: agg})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) health.HealthResponse {
	t.Helper()
	var resp health.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestNumbers_ConfiguredBounds(t *testing.T) {
	h := newTestHandler(t, numbers.Config{Size: 5, Max: 10}, 0)

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var values []int32
	if err := json.Unmarshal(rec.Body.Bytes(), &values); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(values) != 5 {
		t.Fatalf("len = %d, want 5", len(values))
	}
	for _, v := range values {
		if v < 0 || v >= 10 {
			t.Errorf("value %d outside [0, 10)", v)
		}
	}

	rec = get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "UP" {
		t.Errorf("overall status = %q, want UP", resp.Status)
	}
}

func TestNumbers_ZeroSizeIsEmptyArray(t *testing.T) {
	h := newTestHandler(t, numbers.Config{Size: 0, Max: 10}, 0)

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestNumbers_MisconfiguredSize(t *testing.T) {
	h := newTestHandler(t, numbers.Config{Size: -1, Max: numbers.DefaultMax}, 0)

	rec := get(t, h, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET / status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body["error"], "num_size") {
		t.Errorf("error = %q, want mention of num_size", body["error"])
	}

	rec = get(t, h, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health status = %d, want 503", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "DOWN" {
		t.Errorf("overall status = %q, want DOWN", resp.Status)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("len(checks) = %d, want 2", len(resp.Checks))
	}

	check := resp.Checks[0]
	if check.Name != numbers.ConfigProbeName || check.Status != "DOWN" {
		t.Errorf("checks[0] = %s/%s, want numbers.config/DOWN", check.Name, check.Status)
	}
	if check.Data["num_size"] != float64(-1) {
		t.Errorf("num_size = %v, want -1", check.Data["num_size"])
	}
	if check.Data["num_max"] != float64(2147483647) {
		t.Errorf("num_max = %v, want 2147483647", check.Data["num_max"])
	}
}

func TestNumbers_MisconfiguredMax(t *testing.T) {
	h := newTestHandler(t, numbers.Config{Size: 3, Max: 0}, 0)

	if rec := get(t, h, "/"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET / status = %d, want 500", rec.Code)
	}
	if rec := get(t, h, "/health/"+numbers.ConfigProbeName); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health/numbers.config status = %d, want 503", rec.Code)
	}
}

func TestHealth_RandomFailureAlwaysDown(t *testing.T) {
	h := newTestHandler(t, numbers.Config{Size: 3, Max: 10}, 1)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "DOWN" {
		t.Errorf("overall status = %q, want DOWN", resp.Status)
	}

	check := resp.Checks[1]
	if check.Name != numbers.RandomFailureProbeName || check.Status != "DOWN" {
		t.Errorf("checks[1] = %s/%s, want numbers.randomFailure/DOWN", check.Name, check.Status)
	}
	if check.Data["num_failure_rate"] != "1.0" {
		t.Errorf("num_failure_rate = %v, want \"1.0\"", check.Data["num_failure_rate"])
	}

	// The data endpoint is unaffected by the simulated failure.
	if rec := get(t, h, "/"); rec.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", rec.Code)
	}
}

func TestRouting(t *testing.T) {
	h := newTestHandler(t, numbers.DefaultConfig(), 0)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodPost, "/", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/", http.StatusMethodNotAllowed},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/health/unknown", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestNew_WithObserver(t *testing.T) {
	obs, err := observe.NewObserver(context.Background(), observe.Config{
		ServiceName: "numbers-test",
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver: %v", err)
	}

	var logs bytes.Buffer
	gen := numbers.NewGenerator(numbers.Config{Size: -1, Max: 10})
	agg := health.NewAggregator(health.AggregatorConfig{
		Timeout:  time.Second,
		Parallel: true,
		OnResult: RecordChecks(mw.Metrics()),
	})
	agg.Register(numbers.ConfigProbeName, numbers.NewConfigProbe(gen))

	h := New(Options{
		Generator:      gen,
		Aggregator:     agg,
		Middleware:     mw,
		MetricsHandler: obs.MetricsHandler(),
		Logger:         observe.NewLoggerWithWriter("info", &logs),
	})

	if rec := get(t, h, "/"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET / status = %d, want 500", rec.Code)
	}
	if !strings.Contains(logs.String(), "generate numbers") {
		t.Errorf("expected generation failure logged, got %q", logs.String())
	}

	_ = get(t, h, "/health")

	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"http_server_requests", "http_server_errors", "health_check"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_HealthDownIsNotAServerFault(t *testing.T) {
	var logs bytes.Buffer
	obs, err := observe.NewObserver(context.Background(), observe.Config{
		ServiceName: "numbers-test",
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		Output:      &logs,
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver: %v", err)
	}

	agg := health.NewAggregator(health.AggregatorConfig{
		Timeout:  time.Second,
		OnResult: RecordChecks(mw.Metrics()),
	})
	agg.Register(numbers.RandomFailureProbeName, numbers.NewRandomFailureProbe(1))

	h := New(Options{
		Generator:      numbers.NewGenerator(numbers.DefaultConfig()),
		Aggregator:     agg,
		Middleware:     mw,
		MetricsHandler: obs.MetricsHandler(),
		Logger:         obs.Logger(),
	})

	for _, path := range []string{"/health", "/readyz", "/health/" + numbers.RandomFailureProbeName} {
		if rec := get(t, h, path); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("GET %s status = %d, want 503", path, rec.Code)
		}
	}

	if strings.Contains(logs.String(), `"level":"error"`) {
		t.Errorf("DOWN health report logged as error:\n%s", logs.String())
	}

	body := get(t, h, "/metrics").Body.String()
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "http_server_errors") {
			t.Errorf("unexpected server error sample: %s", line)
		}
	}
	if !strings.Contains(body, `check_name="numbers.randomFailure"`) {
		t.Errorf("expected DOWN check counted in health_check metrics, got:\n%s", body)
	}
}

func TestNew_GuardOnlyOnNumbers(t *testing.T) {
	var logs bytes.Buffer
	gen := numbers.NewGenerator(numbers.Config{Size: 1, Max: 10})
	agg := health.NewAggregator()
	agg.Register(numbers.ConfigProbeName, numbers.NewConfigProbe(gen))

	h := New(Options{
		Generator:  gen,
		Aggregator: agg,
		Guard: resilience.NewGuard(resilience.GuardConfig{
			Rate:     0.001,
			Burst:    1,
			OnReject: LogRejections(observe.NewLoggerWithWriter("info", &logs)),
		}),
	})

	if rec := get(t, h, "/"); rec.Code != http.StatusOK {
		t.Fatalf("first GET / status = %d, want 200", rec.Code)
	}
	if rec := get(t, h, "/"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second GET / status = %d, want 429", rec.Code)
	}
	if !strings.Contains(logs.String(), "request rejected") {
		t.Errorf("expected rejection logged, got %q", logs.String())
	}

	for i := 0; i < 3; i++ {
		if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
			t.Fatalf("GET /health status = %d, want 200", rec.Code)
		}
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	h := newTestHandler(t, numbers.Config{Size: 2, Max: 5}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, h, nil, time.Second)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		cancel()
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 (body %s)", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	err = Run(context.Background(), ln.Addr().String(), http.NotFoundHandler(), nil, time.Second)
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Run() = %v, want *net.OpError", err)
	}
}
