// Package health provides health checking primitives for the numbers service.
//
// A Checker is any component that can report its health as a Result with an
// UP or DOWN Status and a map of diagnostic data. Checkers never return
// errors: faults, timeouts, and panics all become DOWN results.
//
// # Aggregating Health Checks
//
// An Aggregator is an explicit, ordered registry of checkers. Each checker
// is queried independently:
//
//	agg := health.NewAggregator()
//	agg.Register("numbers.config", configProbe)
//	agg.Register("numbers.randomFailure", failureProbe)
//
//	results := agg.CheckAll(ctx) // registration order
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	for _, route := range health.Routes(agg) {
//		mux.Handle(route.Method+" "+route.Path, route.Handler)
//	}
//
// serves:
//
//	GET /healthz        liveness, always 200 OK
//	GET /readyz         UP (200) or DOWN (503)
//	GET /health         {"status":"UP","checks":[{"name":...,"status":...,"data":{...}}]}
//	GET /health/{name}  a single check
package health
