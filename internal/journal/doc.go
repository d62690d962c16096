// Package journal keeps an append-only SQLite record of controller
// sessions and their state transitions.
//
// The journal is write-mostly: the engine feeds it through Observer and
// the control API reads it back for the sessions listing. Nothing in the
// loop ever reads from it.
//
// Observer queues writes on a buffered channel drained by one goroutine,
// so a slow disk delays the journal, never the loop. When the queue is
// full, transition records are dropped and counted; session summaries
// wait for space.
package journal
