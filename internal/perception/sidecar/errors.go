package sidecar

import "errors"

var (
	// ErrUnhealthy is returned when /health answers but reports a problem.
	ErrUnhealthy = errors.New("sidecar: detector unhealthy")

	// ErrBadResponse is returned for non-2xx or undecodable responses.
	ErrBadResponse = errors.New("sidecar: bad response")
)
