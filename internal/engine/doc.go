// Package engine runs the perception-decision-action loop.
//
// A Controller owns one session: it resolves the target window, captures a
// frame, asks the detection provider for labelled boxes, filters them,
// resolves the current state and dispatches to that state's handler. Each
// iteration is strictly sequential. Faults from perception degrade to
// "nothing seen", faults from actuation are logged, and a state that
// overstays its timeout is reset to home.
//
// A Runtime bundles the long-lived registries (modes, features, state
// handlers) that survive across sessions. A Host runs sessions on a
// dedicated goroutine and is the only point where the loop meets the rest
// of the process: control requests go in, status snapshots come out.
//
// Observers receive transitions, per-iteration status and the session
// summary. They never influence control flow.
package engine
