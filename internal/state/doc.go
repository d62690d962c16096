// Package state implements the state machine core: the closed set of
// control states, the Handler interface bound to each state, and the
// Registry that dispatches live detections to a handler.
//
// There is no central transition table. Each handler inspects the current
// detections and returns the next state it wants (or None), so the
// effective transition graph is the union of what handlers return.
//
// # Handler shapes
//
// A handler is either a TaskHandler, whose priority-ordered TaskList runs
// the first task whose condition holds, or a bespoke type embedding Base
// and implementing Execute directly. Both satisfy Handler.
//
// # Dispatch order
//
// Handlers are registered with an explicit priority. FindCurrentState
// checks handlers from highest to lowest priority, breaking ties by
// registration order. When two handlers expose Signatures that can be
// satisfied by the same detection set, Register logs a warning and records
// the overlap so it can be inspected with Overlaps.
//
// # Timeouts and retries
//
// Base tracks when the handler was last entered and a per-attempt retry
// counter. IsTimeout is handler-local bookkeeping; the controller enforces
// its own, coarser per-state timeout on top.
package state
