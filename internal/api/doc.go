// Package api implements the local control API and status stream for
// VisionPilot.
//
// This package provides:
//   - REST endpoints to start and stop sessions, read status, and edit
//     per-mode feature settings while idle
//   - Read access to the session journal
//   - A WebSocket hub that streams status, transitions and session
//     summaries as the loop runs
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The server sits beside the engine host. Control requests go to the
// host, which serialises them with MQTT control messages and signal
// handling. The hub is an engine observer: the controller pushes events
// into it and it fans them out to connected clients without blocking
// the loop.
//
// # Graceful Degradation
//
// The journal is optional. Without it the session endpoints answer 503
// and everything else keeps working.
//
// The server binds to loopback by default and carries no authentication.
package api
