// Package replay serves recorded detections from a script file instead of
// a live detector.
//
// A JSONL script holds one frame per line:
//
//	{"detections":[{"class":"attack","confidence":0.9,"bbox":{"x1":10,"y1":10,"x2":40,"y2":40}}]}
//	{"detections":[], "repeat": 3}
//
// A file ending in .yaml or .yml holds the same frames as a YAML list.
// Blank lines and lines starting with # are skipped. Each Detect call
// consumes one frame (or one repetition of it).
package replay
