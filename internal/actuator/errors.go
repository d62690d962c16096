package actuator

import "errors"

// Domain-specific errors for the actuator.
var (
	// ErrPointerFailed is returned when the pointer driver reports a failure.
	ErrPointerFailed = errors.New("actuator: pointer command failed")
)
