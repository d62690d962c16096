package perception

import "errors"

// Domain-specific errors for perception.
var (
	// ErrWindowNotFound is returned when no visible window title matches the keyword.
	ErrWindowNotFound = errors.New("perception: window not found")

	// ErrInvalidKeyword is returned when the window keyword is empty or not a valid pattern.
	ErrInvalidKeyword = errors.New("perception: invalid window keyword")

	// ErrProviderUnavailable is returned when the detector cannot be reached.
	ErrProviderUnavailable = errors.New("perception: detection provider unavailable")
)
