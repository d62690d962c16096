// Package telemetry turns engine events into InfluxDB points.
//
// Three measurements are written:
//
//	visionpilot_cycle       per-iteration snapshot, sampled (tags: state, mode)
//	visionpilot_transition  one point per state change (tags: from, to, reason)
//	visionpilot_session     one point per finished session (tags: reason, dry_run)
//
// Writes go through a PointWriter, normally *influxdb.Client, whose
// batching write API never blocks the loop.
package telemetry
