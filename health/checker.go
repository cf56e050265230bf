package health

import (
	"context"
	"time"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusUp indicates the component is functioning normally.
	StatusUp Status = iota
	// StatusDown indicates the component is not functioning properly.
	StatusDown
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUp:
		return "UP"
	case StatusDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	// Name identifies the check in reports.
	Name string

	// Status is the health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Data contains diagnostic key/value pairs.
	Data map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// Error is the error if the check failed.
	Error error
}

// Up creates an UP result.
func Up(name string) Result {
	return Result{
		Name:      name,
		Status:    StatusUp,
		Timestamp: time.Now(),
	}
}

// Down creates a DOWN result. The message is taken from err when present.
func Down(name string, err error) Result {
	r := Result{
		Name:      name,
		Status:    StatusDown,
		Error:     err,
		Timestamp: time.Now(),
	}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// WithData adds diagnostic data to a result.
func (r Result) WithData(data map[string]any) Result {
	r.Data = data
	return r
}

// WithMessage sets the message on a result.
func (r Result) WithMessage(message string) Result {
	r.Message = message
	return r
}

// Checker is the interface for health checks.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Check must always return a result; faults are reported as DOWN.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
