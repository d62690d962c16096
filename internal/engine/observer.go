package engine

import (
	"github.com/nerrad567/visionpilot/internal/perception"
)

// Observer receives loop events. Implementations must not block the loop
// for long; slow sinks should buffer internally.
type Observer interface {
	OnTransition(t Transition)
	OnCycle(s Status)
	OnSessionEnd(s Summary)
}

// Renderer draws a diagnostic view of each iteration.
type Renderer interface {
	Render(s Status, dets []perception.Detection) error
	Close() error
}

// Logger is the logging interface used by the engine.
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

// observers fans events out and contains observer panics.
type observers struct {
	list   []Observer
	logger Logger
}

func (o observers) each(event string, fn func(Observer)) {
	for _, obs := range o.list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("observer panicked", "event", event, "panic", r)
				}
			}()
			fn(obs)
		}()
	}
}

func (o observers) transition(t Transition) {
	o.each("transition", func(obs Observer) { obs.OnTransition(t) })
}

func (o observers) cycle(s Status) {
	o.each("cycle", func(obs Observer) { obs.OnCycle(s) })
}

func (o observers) sessionEnd(s Summary) {
	o.each("session_end", func(obs Observer) { obs.OnSessionEnd(s) })
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Transition func(Transition)
	Cycle      func(Status)
	SessionEnd func(Summary)
}

// OnTransition implements Observer.
func (f ObserverFuncs) OnTransition(t Transition) {
	if f.Transition != nil {
		f.Transition(t)
	}
}

// OnCycle implements Observer.
func (f ObserverFuncs) OnCycle(s Status) {
	if f.Cycle != nil {
		f.Cycle(s)
	}
}

// OnSessionEnd implements Observer.
func (f ObserverFuncs) OnSessionEnd(s Summary) {
	if f.SessionEnd != nil {
		f.SessionEnd(s)
	}
}
