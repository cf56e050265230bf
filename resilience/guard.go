package resilience

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
)

// GuardConfig configures admission control. Zero values disable a control.
type GuardConfig struct {
	// MaxInFlight caps concurrent requests.
	MaxInFlight int

	// Rate is the sustained requests per second.
	Rate float64

	// Burst is the token bucket size. Default: max(1, Rate).
	Burst int

	// OnReject is called with every rejection. It must be safe for
	// concurrent use.
	OnReject func(r *http.Request, err error)
}

// Guard applies a bulkhead and a rate limiter in front of a handler.
type Guard struct {
	bulkhead *Bulkhead
	limiter  *RateLimiter
	onReject func(r *http.Request, err error)
}

// NewGuard creates a guard from config.
func NewGuard(config GuardConfig) *Guard {
	g := &Guard{onReject: config.OnReject}
	if config.MaxInFlight > 0 {
		g.bulkhead = NewBulkhead(config.MaxInFlight)
	}
	if config.Rate > 0 {
		g.limiter = NewRateLimiter(config.Rate, config.Burst)
	}
	return g
}

// Enabled reports whether any control is active.
func (g *Guard) Enabled() bool {
	return g.bulkhead != nil || g.limiter != nil
}

// Handler wraps next with the guard. The bulkhead is checked before the rate
// limiter so that a full bulkhead does not consume tokens.
func (g *Guard) Handler(next http.Handler) http.Handler {
	if !g.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.bulkhead != nil {
			if err := g.bulkhead.Acquire(); err != nil {
				g.reject(w, r, err)
				return
			}
			defer g.bulkhead.Release()
		}

		if g.limiter != nil {
			if err := g.limiter.Allow(); err != nil {
				if wait := g.limiter.RetryAfter(); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				g.reject(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	if g.onReject != nil {
		g.onReject(r, err)
	}

	code := http.StatusServiceUnavailable
	if errors.Is(err, ErrRateLimitExceeded) {
		code = http.StatusTooManyRequests
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
