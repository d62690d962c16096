// Package actuator turns screen coordinates into pointer actions.
//
// Clicker moves a Pointer to the target (optionally jittered within a
// configured radius) and clicks. DryRun records clicks without touching the
// pointer so detection and state transitions can be exercised safely.
//
// The helpers ClickDetection, ClickWindowPoint and ClickFraction convert
// window-relative coordinates to screen coordinates before clicking.
package actuator
