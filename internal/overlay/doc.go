// Package overlay renders a small diagnostic HUD for each loop iteration:
// current state, mode, cycle and error counters, runtime, and the most
// confident detections of the frame.
//
// The HUD is written to a terminal writer with lipgloss styling. It is a
// pure side effect and never influences the loop.
package overlay
