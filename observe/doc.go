// Package observe provides observability primitives for the numbers service.
//
// It wires OpenTelemetry tracing and metrics, a slog-backed JSON logger, and
// an HTTP middleware that records one span, a request counter, an error
// counter, and a duration histogram per request. Health routes are marked in
// RouteMeta: a DOWN report there is not counted as a server fault. Probe
// outcomes are recorded through Metrics.RecordCheck.
package observe
