package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// Parallel runs health checks in parallel when true.
	// Default: true
	Parallel bool

	// OnResult is called with every completed check, including timeouts
	// and recovered panics. It must be safe for concurrent use.
	OnResult func(ctx context.Context, result Result)
}

// Aggregator is an ordered registry of health checkers.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string // Maintains registration order
}

type namedChecker struct {
	name    string
	checker Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{
		Timeout:  10 * time.Second,
		Parallel: true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
		order:    make([]string, 0),
	}
}

// Register adds a health checker to the aggregator.
// Registering an existing name replaces the checker and keeps its position.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	return a.runCheck(ctx, name, checker), nil
}

// CheckAll runs all registered health checks and returns the results in
// registration order.
func (a *Aggregator) CheckAll(ctx context.Context) []Result {
	a.mu.RLock()
	checkers := make([]namedChecker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, namedChecker{name: name, checker: a.checkers[name]})
	}
	a.mu.RUnlock()

	results := make([]Result, len(checkers))
	if len(checkers) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if a.config.Parallel {
		var wg sync.WaitGroup
		for i, nc := range checkers {
			wg.Add(1)
			go func(i int, nc namedChecker) {
				defer wg.Done()
				results[i] = a.runCheck(ctx, nc.name, nc.checker)
			}(i, nc)
		}
		wg.Wait()
	} else {
		for i, nc := range checkers {
			results[i] = a.runCheck(ctx, nc.name, nc.checker)
		}
	}

	return results
}

// OverallStatus computes the overall health status from a set of results.
// Returns StatusDown if any check is down, StatusUp otherwise (including
// when there are no results).
func (a *Aggregator) OverallStatus(results []Result) Status {
	for _, result := range results {
		if result.Status != StatusUp {
			return StatusDown
		}
	}
	return StatusUp
}

func (a *Aggregator) runCheck(ctx context.Context, name string, checker Checker) Result {
	start := time.Now()

	// Use a channel to handle timeout
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- Down(name, fmt.Errorf("%w: %v", ErrCheckPanic, r))
			}
		}()
		resultCh <- checker.Check(ctx)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		result = Down(name, ErrCheckTimeout).WithMessage("check timed out")
	}

	if result.Name == "" {
		result.Name = name
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = start
	}
	result.Duration = time.Since(start)

	if a.config.OnResult != nil {
		a.config.OnResult(ctx, result)
	}
	return result
}
