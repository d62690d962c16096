// Package mode holds the operating context ("mode") and its per-mode
// feature configuration.
//
// A Mode selects which feature strategies apply and with which settings.
// DetectMode infers the mode from context-exclusive marker classes; when no
// marker is present the result is ambiguous and callers keep the prior mode.
//
// The Manager is the process-wide Mode/FeatureConfig store. It is guarded by
// a read-write mutex so status readers can snapshot it while the controller
// loop runs; writes are expected only from the loop or before it starts.
package mode
