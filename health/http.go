package health

import (
	"encoding/json"
	"errors"
	"net/http"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// This runs all health checks in the aggregator.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := agg.OverallStatus(agg.CheckAll(r.Context()))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(status))
		_, _ = w.Write([]byte(status.String()))
	}
}

// HealthResponse is the JSON response for the aggregated health endpoint.
type HealthResponse struct {
	Status string          `json:"status"`
	Checks []CheckResponse `json:"checks"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Data     map[string]any `json:"data,omitempty"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
}

// NewCheckResponse converts a result to its JSON form.
func NewCheckResponse(result Result) CheckResponse {
	return CheckResponse{
		Name:     result.Name,
		Status:   result.Status.String(),
		Data:     result.Data,
		Message:  result.Message,
		Duration: result.Duration.String(),
	}
}

// DetailedHandler returns an HTTP handler reporting every registered check.
// The overall status is DOWN if any check is DOWN.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		status := agg.OverallStatus(results)

		response := HealthResponse{
			Status: status.String(),
			Checks: make([]CheckResponse, 0, len(results)),
		}
		for _, result := range results {
			response.Checks = append(response.Checks, NewCheckResponse(result))
		}

		writeJSON(w, statusCode(status), response)
	}
}

// SingleCheckHandler returns an HTTP handler for the check named by the
// {name} path value.
func SingleCheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := agg.Check(r.Context(), r.PathValue("name"))
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ErrCheckerNotFound) {
				code = http.StatusNotFound
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, statusCode(result.Status), NewCheckResponse(result))
	}
}

// Route is a health endpoint and its handler.
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
}

// Routes returns the health endpoints backed by agg.
func Routes(agg *Aggregator) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/healthz", Handler: LivenessHandler()},
		{Method: http.MethodGet, Path: "/readyz", Handler: ReadinessHandler(agg)},
		{Method: http.MethodGet, Path: "/health", Handler: DetailedHandler(agg)},
		{Method: http.MethodGet, Path: "/health/{name}", Handler: SingleCheckHandler(agg)},
	}
}

func statusCode(status Status) int {
	if status == StatusUp {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
