package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
)

// Measurement names.
const (
	MeasurementCycle      = "visionpilot_cycle"
	MeasurementTransition = "visionpilot_transition"
	MeasurementSession    = "visionpilot_session"
)

// DefaultSampleInterval spaces cycle points.
const DefaultSampleInterval = time.Second

// PointWriter accepts one point at a time without blocking.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time)
}

// Observer writes engine events as points.
//
// Thread Safety: safe for concurrent use.
type Observer struct {
	writer   PointWriter
	interval time.Duration

	mu        sync.Mutex
	lastCycle time.Time
}

var _ engine.Observer = (*Observer)(nil)

// NewObserver creates a telemetry observer. Cycle points are written at
// most once per interval of loop time; zero uses DefaultSampleInterval and
// a negative interval writes every cycle.
func NewObserver(w PointWriter, interval time.Duration) *Observer {
	if interval == 0 {
		interval = DefaultSampleInterval
	}
	return &Observer{writer: w, interval: interval}
}

// OnCycle writes a sampled status point.
func (o *Observer) OnCycle(s engine.Status) {
	if !o.sample(s.UpdatedAt) {
		return
	}
	o.writer.WritePoint(MeasurementCycle,
		map[string]string{
			"state": string(s.State),
			"mode":  modeTag(s),
		},
		map[string]any{
			"detections":        s.Detections,
			"cycles":            s.Cycles,
			"errors":            s.Errors,
			"iterations":        s.Iterations,
			"runtime_seconds":   s.Runtime.Duration().Seconds(),
			"state_age_seconds": s.StateAge.Duration().Seconds(),
			"window_found":      s.WindowFound,
		},
		s.UpdatedAt,
	)
}

func (o *Observer) sample(at time.Time) bool {
	if o.interval < 0 {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.lastCycle.IsZero() && at.Sub(o.lastCycle) < o.interval {
		return false
	}
	o.lastCycle = at
	return true
}

// OnTransition writes one point per state change.
func (o *Observer) OnTransition(t engine.Transition) {
	from := string(t.From)
	if from == "" {
		from = "none"
	}
	o.writer.WritePoint(MeasurementTransition,
		map[string]string{
			"from":   from,
			"to":     string(t.To),
			"reason": t.Reason,
		},
		map[string]any{
			"cycles":     t.Cycles,
			"session_id": t.SessionID,
		},
		t.At,
	)
}

// OnSessionEnd writes the session summary.
func (o *Observer) OnSessionEnd(s engine.Summary) {
	o.writer.WritePoint(MeasurementSession,
		map[string]string{
			"reason":  s.Reason,
			"dry_run": strconv.FormatBool(s.DryRun),
		},
		map[string]any{
			"session_id":        s.SessionID,
			"runtime_seconds":   s.Runtime.Duration().Seconds(),
			"cycles":            s.Cycles,
			"errors":            s.Errors,
			"iterations":        s.Iterations,
			"avg_cycle_seconds": s.AvgCycle.Duration().Seconds(),
		},
		s.EndedAt,
	)
}

func modeTag(s engine.Status) string {
	if s.Mode == "" {
		return "unset"
	}
	return string(s.Mode)
}
