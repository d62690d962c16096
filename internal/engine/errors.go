package engine

import "errors"

// Domain-specific errors for the engine.
var (
	// ErrRunning is returned when an operation requires an idle host.
	ErrRunning = errors.New("engine: session running")

	// ErrNotRunning is returned when stopping an idle host.
	ErrNotRunning = errors.New("engine: no session running")

	// ErrLoopPanic wraps a panic recovered from the loop.
	ErrLoopPanic = errors.New("engine: loop panicked")

	// ErrMissingDependency is returned when a controller is built without a required collaborator.
	ErrMissingDependency = errors.New("engine: missing dependency")
)
