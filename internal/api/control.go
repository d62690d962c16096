package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/nerrad567/visionpilot/internal/engine"
)

// handleStatus returns the live snapshot, or the last session's counters when idle.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Status())
}

// handleStart launches a session.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.host.Start()
	switch {
	case errors.Is(err, engine.ErrRunning):
		writeConflict(w, "a session is already running")
		return
	case err != nil:
		s.logger.Error("starting session from API failed", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, "failed to start session")
		return
	}
	s.logger.Info("session started from API", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusAccepted, s.host.Status())
}

// handleStop ends the running session and waits for teardown.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	err := s.host.Stop(ctx)
	switch {
	case errors.Is(err, engine.ErrNotRunning):
		writeConflict(w, "no session is running")
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeUnavailable, "session did not stop in time; it was cancelled")
		return
	case err != nil:
		s.logger.Error("stopping session from API failed", "error", err)
		writeInternalError(w, "failed to stop session")
		return
	}
	s.logger.Info("session stopped from API", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusOK, s.host.Status())
}
