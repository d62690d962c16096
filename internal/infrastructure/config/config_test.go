package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
detection:
  confidence_threshold: 0.5
  model_path: "/models/village.onnx"
window:
  keyword: "Emulator"
timing:
  loop_interval: 0.3
states:
  searching:
    priority: 30
    timing:
      max_duration: 25
    indicators:
      any: [searching_text, cancel_button]
  engaged:
    fixed_positions:
      surrender: [0.85, 0.12]
    deployment:
      zones:
        - position: [0.3, 0.7]
        - position: [0.5, 0.8]
ui_elements:
  attack:
    min_size: [20, 20]
    max_size: [300, 300]
    min_confidence: 0.7
modes:
  initial: builder_base
  features:
    home_village:
      hv_attack:
        enabled: false
        check_army_ready: false
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Detection.ConfidenceThreshold != 0.5 {
		t.Errorf("Detection.ConfidenceThreshold = %v, want 0.5", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Window.Keyword != "Emulator" {
		t.Errorf("Window.Keyword = %q, want %q", cfg.Window.Keyword, "Emulator")
	}
	if got := cfg.StateTimeout("searching"); got != 25*time.Second {
		t.Errorf("StateTimeout(searching) = %v, want 25s", got)
	}
	if got := cfg.State("searching").PriorityOr(0); got != 30 {
		t.Errorf("searching priority = %d, want 30", got)
	}
	if got := cfg.State("engaged").Fixed("surrender", [2]float64{0.9, 0.1}); got != [2]float64{0.85, 0.12} {
		t.Errorf("engaged surrender position = %v", got)
	}
	if zones := cfg.State("engaged").Zones(nil); len(zones) != 2 {
		t.Errorf("engaged zones = %v, want 2 entries", zones)
	}
	if el := cfg.UIElements["attack"]; el.MinSize != [2]int{20, 20} || el.MinConfidence != 0.7 {
		t.Errorf("UIElements[attack] = %+v", el)
	}
	if cfg.Modes.Initial != "builder_base" {
		t.Errorf("Modes.Initial = %q, want builder_base", cfg.Modes.Initial)
	}
	attack := cfg.Modes.Features["home_village"]["hv_attack"]
	if attack.Enabled == nil || *attack.Enabled {
		t.Errorf("hv_attack.enabled = %v, want false", attack.Enabled)
	}
	if v, ok := attack.Tunables["check_army_ready"].(bool); !ok || v {
		t.Errorf("hv_attack tunable check_army_ready = %v, want false", attack.Tunables["check_army_ready"])
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want defaults", err)
	}
	if cfg.Window.Keyword != "BlueStacks" {
		t.Errorf("Window.Keyword = %q, want BlueStacks", cfg.Window.Keyword)
	}
	if cfg.Detection.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %v, want 0.6", cfg.Detection.ConfidenceThreshold)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.StateTimeout("anything"); got != 60*time.Second {
		t.Errorf("StateTimeout default = %v, want 60s", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
detection:
  confidence_threshold: 1.5
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected validation error, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing keyword",
			mutate:  func(c *Config) { c.Window.Keyword = "" },
			wantErr: true,
		},
		{
			name: "static window replaces keyword",
			mutate: func(c *Config) {
				c.Window.Keyword = ""
				c.Window.Static = &RectConfig{Width: 1280, Height: 720}
			},
			wantErr: false,
		},
		{
			name:    "unsupported driver",
			mutate:  func(c *Config) { c.Actuator.Driver = "robotgo" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "invalid port when API enabled",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "fixed position outside window",
			mutate: func(c *Config) {
				c.States["engaged"] = StateConfig{FixedPositions: map[string][2]float64{"surrender": {1.2, 0.1}}}
			},
			wantErr: true,
		},
		{
			name: "element min exceeds max",
			mutate: func(c *Config) {
				c.UIElements["okay"] = ElementConfig{MinSize: [2]int{50, 10}, MaxSize: [2]int{40, 40}}
			},
			wantErr: true,
		},
		{
			name: "managed sidecar without binary",
			mutate: func(c *Config) {
				c.Detection.Sidecar.Managed = true
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("VISIONPILOT_WINDOW_KEYWORD", "LDPlayer")
	t.Setenv("VISIONPILOT_MODEL_PATH", "/models/bb.onnx")
	t.Setenv("VISIONPILOT_DRY_RUN", "true")
	t.Setenv("VISIONPILOT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("VISIONPILOT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("VISIONPILOT_API_PORT", "9100")
	t.Setenv("VISIONPILOT_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Window.Keyword != "LDPlayer" {
		t.Errorf("Window.Keyword = %q, want LDPlayer", cfg.Window.Keyword)
	}
	if cfg.Detection.ModelPath != "/models/bb.onnx" {
		t.Errorf("Detection.ModelPath = %q", cfg.Detection.ModelPath)
	}
	if !cfg.Actuator.DryRun {
		t.Error("Actuator.DryRun = false, want true")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestStateConfig_Defaults(t *testing.T) {
	var sc StateConfig

	if got := sc.PriorityOr(7); got != 7 {
		t.Errorf("PriorityOr = %d, want 7", got)
	}
	if got := sc.MaxDuration(45 * time.Second); got != 45*time.Second {
		t.Errorf("MaxDuration = %v, want 45s", got)
	}
	if got := sc.Relative("attack", [2]int{0, -50}); got != [2]int{0, -50} {
		t.Errorf("Relative = %v", got)
	}
	if got := sc.Tunable("max_troops", 10); got != 10 {
		t.Errorf("Tunable = %v, want 10", got)
	}
	if sc.HasSignature() {
		t.Error("zero block should not declare a signature")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Window.Keyword == "" {
		t.Error("defaultConfig should have non-empty Window.Keyword")
	}
	if cfg.Timing.ClickDuration != 0.1 {
		t.Errorf("Timing.ClickDuration = %v, want 0.1", cfg.Timing.ClickDuration)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("defaultConfig API.Host = %q, want loopback", cfg.API.Host)
	}
}

// TestLoad_ShippedExample keeps configs/visionpilot.yaml loadable.
func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "visionpilot.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Modes.Initial != "home_village" {
		t.Errorf("Modes.Initial = %q, want home_village", cfg.Modes.Initial)
	}
	if got := cfg.State("engaged").Tunable("max_troops", 0); got != 10 {
		t.Errorf("engaged max_troops = %v, want 10", got)
	}
	if !cfg.Database.Enabled || !cfg.API.Enabled {
		t.Error("example should enable the journal and the API")
	}
}
