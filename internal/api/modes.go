package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/feature"
	"github.com/nerrad567/visionpilot/internal/mode"
)

// currentModeParam selects the current mode in a {mode} path segment.
const currentModeParam = "current"

// ModesResponse is the body of GET /modes.
type ModesResponse struct {
	Current mode.Mode      `json:"current"`
	Modes   []mode.Summary `json:"modes"`
}

// SetModeRequest is the body of PUT /modes/current.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// FeatureConfigResponse carries one mode's feature settings.
type FeatureConfigResponse struct {
	Mode     mode.Mode          `json:"mode"`
	Features mode.FeatureConfig `json:"features"`
}

// FeaturesResponse is the body of GET /features/{mode}.
type FeaturesResponse struct {
	Mode       mode.Mode      `json:"mode"`
	Order      []feature.Type `json:"order"`
	Strategies []feature.Info `json:"strategies"`
}

func (s *Server) handleListModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModesResponse{Current: s.currentMode(), Modes: s.modes.Summaries()})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.host.SetMode(m); err != nil {
		s.writeModeError(w, err)
		return
	}
	s.handleListModes(w, r)
}

func (s *Server) handleGetFeatureConfig(w http.ResponseWriter, r *http.Request) {
	m, ok := s.pathMode(w, r)
	if !ok {
		return
	}
	s.writeFeatureConfig(w, m)
}

func (s *Server) handleUpdateFeatureConfig(w http.ResponseWriter, r *http.Request) {
	m, ok := s.pathMode(w, r)
	if !ok {
		return
	}

	var updates mode.FeatureUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(updates) == 0 {
		writeBadRequest(w, "no feature settings given")
		return
	}
	if err := s.checkFeatureNames(m, updates); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.host.UpdateFeatureConfig(m, updates); err != nil {
		s.writeModeError(w, err)
		return
	}
	s.writeFeatureConfig(w, m)
}

func (s *Server) handleResetFeatureConfig(w http.ResponseWriter, r *http.Request) {
	m, ok := s.pathMode(w, r)
	if !ok {
		return
	}
	if err := s.host.ResetFeatureConfig(m); err != nil {
		s.writeModeError(w, err)
		return
	}
	s.writeFeatureConfig(w, m)
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	m, ok := s.pathMode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FeaturesResponse{
		Mode:       m,
		Order:      s.features.ExecutionOrder(m),
		Strategies: s.features.Available(m),
	})
}

// checkFeatureNames rejects settings for strategies not registered in m.
func (s *Server) checkFeatureNames(m mode.Mode, updates mode.FeatureUpdates) error {
	known := make(map[string]struct{})
	for _, info := range s.features.Available(m) {
		known[string(info.Type)] = struct{}{}
	}
	for name := range updates {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown feature %q for mode %s", name, m)
		}
	}
	return nil
}

func (s *Server) writeFeatureConfig(w http.ResponseWriter, m mode.Mode) {
	cfg, err := s.modes.ModeConfig(m)
	if err != nil {
		s.writeModeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FeatureConfigResponse{Mode: m, Features: cfg})
}

// currentMode returns the live mode, or mode.None when unset.
func (s *Server) currentMode() mode.Mode {
	for _, sm := range s.modes.Summaries() {
		if sm.Current {
			return sm.Mode
		}
	}
	return mode.None
}

func (s *Server) writeModeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrRunning):
		writeConflict(w, "settings cannot change while a session is running")
	case errors.Is(err, mode.ErrModeUnset):
		writeConflict(w, "no current mode is set")
	case errors.Is(err, mode.ErrUnknownMode):
		writeBadRequest(w, err.Error())
	default:
		s.logger.Error("mode operation failed", "error", err)
		writeInternalError(w, "mode operation failed")
	}
}

// pathMode parses the {mode} segment. "current" resolves to the live mode
// and answers 409 when none is set.
func (s *Server) pathMode(w http.ResponseWriter, r *http.Request) (mode.Mode, bool) {
	name := chi.URLParam(r, "mode")
	if name == currentModeParam {
		m := s.currentMode()
		if m == mode.None {
			s.writeModeError(w, mode.ErrModeUnset)
			return mode.None, false
		}
		return m, true
	}
	m, err := mode.Parse(name)
	if err != nil {
		writeBadRequest(w, err.Error())
		return mode.None, false
	}
	return m, true
}
