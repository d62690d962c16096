package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for VisionPilot.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Detection  DetectionConfig          `yaml:"detection"`
	Window     WindowConfig             `yaml:"window"`
	Timing     TimingConfig             `yaml:"timing"`
	Actuator   ActuatorConfig           `yaml:"actuator"`
	Overlay    OverlayConfig            `yaml:"overlay"`
	Modes      ModesConfig              `yaml:"modes"`
	States     map[string]StateConfig   `yaml:"states"`
	UIElements map[string]ElementConfig `yaml:"ui_elements"`
	Database   DatabaseConfig           `yaml:"database"`
	MQTT       MQTTConfig               `yaml:"mqtt"`
	API        APIConfig                `yaml:"api"`
	InfluxDB   InfluxDBConfig           `yaml:"influxdb"`
	Logging    LoggingConfig            `yaml:"logging"`
}

// DetectionConfig contains detector settings.
type DetectionConfig struct {
	// ConfidenceThreshold is passed to the detector; lower-scored boxes are dropped.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// ModelPath is the detector asset handed to the sidecar on launch.
	ModelPath string `yaml:"model_path"`

	// Replay, when set, reads recorded detections from a JSONL file instead
	// of querying the sidecar.
	Replay string `yaml:"replay"`

	Sidecar SidecarConfig `yaml:"sidecar"`
}

// SidecarConfig contains settings for the HTTP detector process.
type SidecarConfig struct {
	// URL is the base address of the detector HTTP endpoint.
	URL string `yaml:"url"`

	// Managed indicates whether VisionPilot launches and supervises the
	// detector. If false, the detector is expected to be running already.
	Managed bool `yaml:"managed"`

	Binary             string   `yaml:"binary"`
	Args               []string `yaml:"args"`
	StartupTimeout     int      `yaml:"startup_timeout"`
	RequestTimeout     float64  `yaml:"request_timeout"`
	RestartOnFailure   bool     `yaml:"restart_on_failure"`
	MaxRestartAttempts int      `yaml:"max_restart_attempts"`
	HealthInterval     int      `yaml:"health_interval"`
}

// WindowConfig contains target window lookup settings.
type WindowConfig struct {
	// Keyword is matched case-insensitively against visible window titles.
	// It may be a plain substring or a regular expression.
	Keyword string `yaml:"keyword"`

	// Static pins the window to a fixed rectangle and skips title lookup.
	Static *RectConfig `yaml:"static,omitempty"`
}

// RectConfig describes a fixed screen rectangle.
type RectConfig struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TimingConfig contains loop and action timing defaults, in seconds.
type TimingConfig struct {
	ClickDuration       float64 `yaml:"click_duration"`
	LoopInterval        float64 `yaml:"loop_interval"`
	WindowRetryDelay    float64 `yaml:"window_retry_delay"`
	ActionSettle        float64 `yaml:"action_settle"`
	DefaultStateTimeout float64 `yaml:"default_state_timeout"`
}

// ActuatorConfig contains pointer driver settings.
type ActuatorConfig struct {
	// DryRun suppresses pointer actions while detection and state
	// transitions still run.
	DryRun bool `yaml:"dry_run"`

	// Driver selects the pointer backend. Only "xdotool" is supported.
	Driver string `yaml:"driver"`
	Binary string `yaml:"binary"`

	// OffsetRadius randomises each click within this many pixels.
	OffsetRadius int `yaml:"offset_radius"`
}

// OverlayConfig contains diagnostic HUD settings.
type OverlayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Output        string `yaml:"output"`
	MaxDetections int    `yaml:"max_detections"`
}

// ModesConfig contains mode selection and per-mode feature settings.
type ModesConfig struct {
	// Initial is the mode set before the loop starts. Empty leaves the mode
	// unset until a handler or mode detection picks one.
	Initial string `yaml:"initial"`

	// Features maps mode name to feature name to settings.
	Features map[string]map[string]FeatureSettingConfig `yaml:"features"`

	// Order maps mode name to an explicit feature execution order.
	Order map[string][]string `yaml:"order"`
}

// FeatureSettingConfig holds one feature's switch and tunables.
//
// Example YAML:
//
//	hv_attack:
//	  enabled: true
//	  check_army_ready: false
type FeatureSettingConfig struct {
	Enabled  *bool          `yaml:"enabled,omitempty"`
	Tunables map[string]any `yaml:",inline"`
}

// ElementConfig bounds detections of a single class.
// Zero values disable the corresponding bound.
type ElementConfig struct {
	MinSize       [2]int  `yaml:"min_size"`
	MaxSize       [2]int  `yaml:"max_size"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains control API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path or a missing file yields the defaults. A file that exists
// but cannot be parsed is an error.
//
// Environment variables follow the pattern: VISIONPILOT_SECTION_KEY
// For example: VISIONPILOT_WINDOW_KEYWORD, VISIONPILOT_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file (may be empty)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.6,
			Sidecar: SidecarConfig{
				URL:                "http://127.0.0.1:8765",
				StartupTimeout:     30,
				RequestTimeout:     5,
				RestartOnFailure:   true,
				MaxRestartAttempts: 5,
				HealthInterval:     15,
			},
		},
		Window: WindowConfig{
			Keyword: "BlueStacks",
		},
		Timing: TimingConfig{
			ClickDuration:       0.1,
			LoopInterval:        0.2,
			WindowRetryDelay:    1,
			ActionSettle:        1.5,
			DefaultStateTimeout: 60,
		},
		Actuator: ActuatorConfig{
			Driver:       "xdotool",
			Binary:       "xdotool",
			OffsetRadius: 3,
		},
		Overlay: OverlayConfig{
			Output:        "stderr",
			MaxDetections: 8,
		},
		States:     map[string]StateConfig{},
		UIElements: map[string]ElementConfig{},
		Database: DatabaseConfig{
			Path:        "./data/visionpilot.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "visionpilot",
			},
			QoS:         1,
			TopicPrefix: "visionpilot",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "visionpilot",
			Bucket:        "visionpilot",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VISIONPILOT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Detection
	if v := os.Getenv("VISIONPILOT_MODEL_PATH"); v != "" {
		cfg.Detection.ModelPath = v
	}
	if v := os.Getenv("VISIONPILOT_SIDECAR_URL"); v != "" {
		cfg.Detection.Sidecar.URL = v
	}

	// Window
	if v := os.Getenv("VISIONPILOT_WINDOW_KEYWORD"); v != "" {
		cfg.Window.Keyword = v
	}

	// Actuator
	if v := os.Getenv("VISIONPILOT_DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Actuator.DryRun = b
		}
	}

	// Database
	if v := os.Getenv("VISIONPILOT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("VISIONPILOT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VISIONPILOT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VISIONPILOT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("VISIONPILOT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("VISIONPILOT_API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = p
		}
	}

	// InfluxDB
	if v := os.Getenv("VISIONPILOT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("VISIONPILOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Detection
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		errs = append(errs, "detection.confidence_threshold must be between 0 and 1")
	}
	if c.Detection.Sidecar.Managed && c.Detection.Sidecar.Binary == "" {
		errs = append(errs, "detection.sidecar.binary is required when the sidecar is managed")
	}

	// Window
	if c.Window.Keyword == "" && c.Window.Static == nil {
		errs = append(errs, "window.keyword is required unless window.static is set")
	}
	if s := c.Window.Static; s != nil && (s.Width <= 0 || s.Height <= 0) {
		errs = append(errs, "window.static width and height must be positive")
	}

	// Timing
	if c.Timing.LoopInterval < 0 {
		errs = append(errs, "timing.loop_interval must not be negative")
	}
	if c.Timing.DefaultStateTimeout <= 0 {
		errs = append(errs, "timing.default_state_timeout must be positive")
	}

	// Actuator
	if c.Actuator.Driver != "xdotool" {
		errs = append(errs, fmt.Sprintf("actuator.driver %q is not supported", c.Actuator.Driver))
	}
	if c.Actuator.OffsetRadius < 0 {
		errs = append(errs, "actuator.offset_radius must not be negative")
	}

	// Per-state blocks
	for name, sc := range c.States {
		errs = append(errs, sc.validate(name)...)
	}

	// UI elements
	for class, ec := range c.UIElements {
		if ec.MinConfidence < 0 || ec.MinConfidence > 1 {
			errs = append(errs, fmt.Sprintf("ui_elements.%s.min_confidence must be between 0 and 1", class))
		}
		for i := range 2 {
			if ec.MaxSize[i] > 0 && ec.MinSize[i] > ec.MaxSize[i] {
				errs = append(errs, fmt.Sprintf("ui_elements.%s.min_size exceeds max_size", class))
				break
			}
		}
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// State returns the block for a named state, or a zero block if none is configured.
func (c *Config) State(name string) StateConfig {
	return c.States[name]
}

// StateTimeout returns the controller-level timeout for a state.
// Falls back to timing.default_state_timeout when the state has none.
func (c *Config) StateTimeout(name string) time.Duration {
	return c.State(name).MaxDuration(Seconds(c.Timing.DefaultStateTimeout))
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// Seconds converts fractional seconds from YAML into a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
