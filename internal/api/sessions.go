package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/visionpilot/internal/journal"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "session journal is disabled")
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	sessions, err := s.journal.ListSessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "session journal is disabled")
		return
	}
	sess, err := s.journal.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, journal.ErrSessionNotFound) {
		writeNotFound(w, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("reading session failed", "error", err)
		writeInternalError(w, "failed to read session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "session journal is disabled")
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.journal.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			writeNotFound(w, "session not found")
			return
		}
		s.logger.Error("reading session failed", "error", err)
		writeInternalError(w, "failed to read session")
		return
	}
	records, err := s.journal.ListTransitions(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing transitions failed", "error", err)
		writeInternalError(w, "failed to list transitions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"transitions": records,
		"count":       len(records),
	})
}

// queryLimit parses ?limit=; the journal clamps it to its own bounds.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}
