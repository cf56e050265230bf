package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanic indicates a health check panicked and was reported DOWN.
	ErrCheckPanic = errors.New("health: check panicked")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrSimulatedFailure marks an intentional DOWN state used to exercise
	// monitoring. It is not a real fault.
	ErrSimulatedFailure = errors.New("health: simulated failure")
)
