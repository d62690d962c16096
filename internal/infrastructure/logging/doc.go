// Package logging provides structured logging for VisionPilot.
//
// It wraps log/slog so every entry carries the service name and build
// version. Components never import this package directly: each declares a
// small Logger interface (Debug, Info, Warn, Error) that *Logger satisfies,
// and falls back to a no-op logger until SetLogger is called.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("state changed", "from", "home", "to", "searching")
package logging
