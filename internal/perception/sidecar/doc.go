// Package sidecar is the HTTP client for the detector process.
//
// The detector runs as a separate binary (launched and supervised by
// internal/process when managed) and exposes two endpoints:
//
//	GET  /health   200 with {"status":"ok","model":"..."} once the model is loaded
//	POST /detect   {"window":{...},"confidence":0.6} -> {"detections":[...]}
//
// The sidecar grabs the pixels of the window region itself, so frames
// carry only the rectangle. Client implements perception.Provider.
package sidecar
