// Package statusbus mirrors engine events onto MQTT and accepts start and
// stop requests from the broker.
//
// Outbound messages are queued and published by one goroutine so that a
// slow or absent broker never stalls the controller loop. Status
// snapshots are retained and sampled: one per interval, plus one on every
// state change. Transitions and session summaries are always queued and
// dropped only when the queue is full.
//
// Inbound, BindControl subscribes to {prefix}/control/+ and forwards
// "start" and "stop" to the engine host.
package statusbus
