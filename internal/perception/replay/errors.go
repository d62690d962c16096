package replay

import "errors"

var (
	// ErrEmptyScript is returned when a script holds no frames.
	ErrEmptyScript = errors.New("replay: script has no frames")

	// ErrInvalidFrame is returned for a line that is not a valid frame.
	ErrInvalidFrame = errors.New("replay: invalid frame")
)
