// Package perception holds the detection data model and the boundaries to
// the external perception collaborators.
//
// A Detection is one labelled, confidence-scored bounding box produced by
// the detector for a single captured frame. Detections are ephemeral: the
// controller discards them at the end of every iteration.
//
// Collaborator interfaces:
//   - Locator resolves a window title keyword to a screen rectangle
//   - Capturer produces a Frame for that rectangle
//   - Provider turns a Frame into detections
//
// The Validator drops detections that violate per-class size and
// confidence bounds. FilterValid is pure, order-preserving and idempotent.
//
// Coordinates in a Detection are window-relative pixels. WindowInfo.ToScreen
// converts them to absolute screen coordinates for the actuator.
package perception
