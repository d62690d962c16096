package feature

import "errors"

// Domain-specific errors for feature strategies.
var (
	// ErrDuplicateStrategy is returned when a strategy type is already registered for its mode.
	ErrDuplicateStrategy = errors.New("feature: strategy already registered")

	// ErrInvalidStrategy is returned when a strategy has an unknown mode or empty type.
	ErrInvalidStrategy = errors.New("feature: invalid strategy")

	// ErrStrategyPanic wraps a panic recovered from a strategy.
	ErrStrategyPanic = errors.New("feature: strategy panicked")
)
