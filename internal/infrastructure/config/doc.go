// Package config handles loading and validating VisionPilot configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling, including per-state blocks whose accessors
//     take the caller's default
//
// A missing configuration file is not an error: the engine runs on
// built-in defaults. Sensitive values (MQTT password, InfluxDB token)
// should be set via environment variables.
//
// Usage:
//
//	cfg, err := config.Load("configs/visionpilot.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Window.Keyword)
package config
