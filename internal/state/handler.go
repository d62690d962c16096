package state

import (
	"context"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Handler is the logic bound to one state.
type Handler interface {
	// State returns the state this handler serves.
	State() State

	// CanHandle reports whether the detections look like this state.
	CanHandle(dets []perception.Detection) bool

	// Execute performs one bounded action and returns the requested next
	// state, or None to stay. Errors are actuation faults; the controller
	// logs them and carries on.
	Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (State, error)
}

// Enterer is implemented by handlers that reset per-attempt bookkeeping
// whenever their state becomes current.
type Enterer interface {
	Enter(now time.Time)
}

// Signatured is implemented by handlers whose applicability is described
// by a Signature. The registry uses it to detect overlapping predicates.
type Signatured interface {
	Signature() Signature
}

// Logger is the logging interface used by the state package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
