package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/visionpilot/internal/state"
)

// Session holds the loop's mutable counters. It is owned by the loop
// goroutine; other goroutines read Status snapshots instead.
type Session struct {
	ID         string
	StartedAt  time.Time
	Current    state.State
	Previous   state.State
	StateStart time.Time
	Cycles     int
	Errors     int
	Iterations int

	detections  int
	windowFound bool
	dryRun      bool
}

func newSession(now time.Time, dryRun bool) *Session {
	return &Session{
		ID:         uuid.New().String(),
		StartedAt:  now,
		StateStart: now,
		dryRun:     dryRun,
	}
}

func (s *Session) summary(now time.Time, reason string) Summary {
	runtime := now.Sub(s.StartedAt)
	sum := Summary{
		SessionID:  s.ID,
		StartedAt:  s.StartedAt,
		EndedAt:    now,
		Runtime:    Seconds(runtime),
		Cycles:     s.Cycles,
		Errors:     s.Errors,
		Iterations: s.Iterations,
		DryRun:     s.dryRun,
		Reason:     reason,
	}
	if s.Cycles > 0 {
		sum.AvgCycle = Seconds(runtime / time.Duration(s.Cycles))
	}
	return sum
}
