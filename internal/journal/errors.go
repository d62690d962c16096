package journal

import "errors"

var (
	// ErrSessionNotFound is returned when a session id has no journal row.
	ErrSessionNotFound = errors.New("journal: session not found")

	// ErrClosed is returned when writing through an observer after Close.
	ErrClosed = errors.New("journal: observer closed")
)
