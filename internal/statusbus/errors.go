package statusbus

import "errors"

var (
	// ErrUnknownAction is returned for control topics other than start and stop.
	ErrUnknownAction = errors.New("statusbus: unknown control action")
)
