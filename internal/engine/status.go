package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Seconds is a duration that marshals to JSON as fractional seconds.
type Seconds time.Duration

// MarshalJSON encodes the duration in seconds.
func (s Seconds) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, time.Duration(s).Seconds(), 'f', 3, 64), nil
}

// UnmarshalJSON decodes fractional seconds.
func (s *Seconds) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decoding seconds: %w", err)
	}
	*s = Seconds(time.Duration(f * float64(time.Second)))
	return nil
}

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Transition reasons.
const (
	ReasonStart     = "start"
	ReasonDetected  = "detected"
	ReasonHandler   = "handler"
	ReasonTimeout   = "timeout"
	ReasonNoHandler = "no_handler"
)

// Session end reasons.
const (
	EndCancelled = "cancelled"
	EndStopped   = "stopped"
	EndPanic     = "panic"
)

// Transition is one state change.
type Transition struct {
	SessionID string      `json:"session_id"`
	From      state.State `json:"from"`
	To        state.State `json:"to"`
	Reason    string      `json:"reason"`
	At        time.Time   `json:"at"`
	Cycles    int         `json:"cycles"`
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	SessionID   string      `json:"session_id,omitempty"`
	Running     bool        `json:"running"`
	State       state.State `json:"state"`
	Previous    state.State `json:"previous"`
	Mode        mode.Mode   `json:"mode"`
	Cycles      int         `json:"cycles"`
	Errors      int         `json:"errors"`
	Iterations  int         `json:"iterations"`
	Detections  int         `json:"detections"`
	Runtime     Seconds     `json:"runtime_seconds"`
	StateAge    Seconds     `json:"state_age_seconds"`
	WindowFound bool        `json:"window_found"`
	DryRun      bool        `json:"dry_run"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Summary is emitted once when a session ends.
type Summary struct {
	SessionID  string    `json:"session_id"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Runtime    Seconds   `json:"runtime_seconds"`
	Cycles     int       `json:"cycles"`
	Errors     int       `json:"errors"`
	Iterations int       `json:"iterations"`
	AvgCycle   Seconds   `json:"avg_cycle_seconds"`
	DryRun     bool      `json:"dry_run"`
	Reason     string    `json:"reason"`
}
