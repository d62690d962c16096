package handlers

import (
	"context"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

const errorSettle = time.Second

// Error is the recovery state. It is never matched from detections.
type Error struct {
	state.Base
	deps Deps
}

// NewError creates the error handler.
func NewError(deps Deps) *Error {
	return &Error{Base: state.NewBase(state.Error), deps: deps.withDefaults()}
}

// CanHandle always reports false.
func (h *Error) CanHandle([]perception.Detection) bool { return false }

// Execute settles briefly and requests home.
func (h *Error) Execute(ctx context.Context, _ []perception.Detection, _ perception.WindowInfo) (state.State, error) {
	h.deps.pause(ctx, errorSettle)
	return state.Home, nil
}
