package mode

import "errors"

// Domain-specific errors for modes.
var (
	// ErrUnknownMode is returned when a mode name is not declared.
	ErrUnknownMode = errors.New("mode: unknown mode")

	// ErrModeUnset is returned when an operation needs a current mode and none is set.
	ErrModeUnset = errors.New("mode: no current mode")
)
