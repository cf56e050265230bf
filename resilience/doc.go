// Package resilience sheds load before it reaches the number generator.
//
// Two admission controls are provided and can be combined:
//
//   - Bulkhead caps the number of requests in flight.
//   - RateLimiter is a token bucket capping sustained request rate.
//
// Guard wraps an http.Handler with either or both. Rejected requests receive
// a JSON error body: 503 when the bulkhead is full, 429 when the rate limit
// is exceeded.
//
//	guard := resilience.NewGuard(resilience.GuardConfig{
//	    MaxInFlight: 64,
//	    Rate:        200,
//	    Burst:       20,
//	})
//	mux.Handle("GET /{$}", guard.Handler(numbersHandler))
//
// A zero GuardConfig admits everything.
package resilience
