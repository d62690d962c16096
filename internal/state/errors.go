package state

import "errors"

// Domain-specific errors for the state machine.
var (
	// ErrUnknownState is returned when a state name is not part of the enumeration.
	ErrUnknownState = errors.New("state: unknown state")

	// ErrDuplicateHandler is returned when a state already has a handler.
	ErrDuplicateHandler = errors.New("state: handler already registered")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("state: nil handler")

	// ErrNoHandler is returned when a state has no registered handler.
	ErrNoHandler = errors.New("state: no handler registered")
)
