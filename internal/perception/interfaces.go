package perception

import "context"

// Provider turns a frame into detections.
//
// The result is unordered; an empty slice means nothing was found.
// Errors are transient from the caller's point of view: the controller
// treats them as "no detections this cycle".
type Provider interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// Locator resolves a window title keyword to its screen rectangle.
// It returns ErrWindowNotFound when no visible window matches.
type Locator interface {
	Locate(ctx context.Context, keyword string) (WindowInfo, error)
}

// Capturer produces frames for a window rectangle.
type Capturer interface {
	Capture(ctx context.Context, win WindowInfo) (Frame, error)
	Close() error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, frame Frame) ([]Detection, error)

// Detect calls f.
func (f ProviderFunc) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	return f(ctx, frame)
}
