package mode

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Executor runs the feature strategies of one mode.
type Executor interface {
	ExecuteFeatures(ctx context.Context, m Mode, dets []perception.Detection, win perception.WindowInfo, cfg FeatureConfig) state.State
}

// Logger is the logging interface used by the mode package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Summary describes one mode for status displays.
type Summary struct {
	Mode        Mode     `json:"mode"`
	DisplayName string   `json:"display_name"`
	Current     bool     `json:"current"`
	Enabled     []string `json:"enabled_features"`
}

// Manager holds the current mode and the per-mode feature configuration.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Feature execution runs
//     outside the lock.
type Manager struct {
	mu       sync.RWMutex
	current  Mode
	configs  map[Mode]FeatureConfig
	defaults map[Mode]FeatureConfig
	rules    []Rule
	executor Executor
	logger   Logger
}

// NewManager creates a Manager with built-in defaults for every declared
// mode and no current mode.
func NewManager(executor Executor) *Manager {
	m := &Manager{
		configs:  make(map[Mode]FeatureConfig),
		defaults: make(map[Mode]FeatureConfig),
		rules:    DefaultRules(),
		executor: executor,
		logger:   noopLogger{},
	}
	for _, md := range declared {
		m.defaults[md] = DefaultFeatureConfig(md)
		m.configs[md] = m.defaults[md].Clone()
	}
	return m
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetRules replaces the mode detection rules.
func (m *Manager) SetRules(rules []Rule) {
	m.mu.Lock()
	m.rules = append([]Rule(nil), rules...)
	m.mu.Unlock()
}

// SetDefaults replaces the baseline configuration for md and resets the
// live configuration to it. Missing features are taken from the built-in defaults.
func (m *Manager) SetDefaults(md Mode, cfg FeatureConfig) error {
	if !md.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, md)
	}
	base := DefaultFeatureConfig(md).Merge(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[md] = base
	m.configs[md] = base.Clone()
	return nil
}

// SetMode makes md current. Setting the current mode again is a no-op.
func (m *Manager) SetMode(md Mode) error {
	if !md.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, md)
	}

	m.mu.Lock()
	prev := m.current
	m.current = md
	m.mu.Unlock()

	if prev != md {
		m.logger.Info("mode changed", "from", prev, "to", md)
	}
	return nil
}

// Current returns the current mode, or None.
func (m *Manager) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// DetectMode applies the detection rules to dets without changing state.
func (m *Manager) DetectMode(dets []perception.Detection) (Mode, bool) {
	m.mu.RLock()
	rules := m.rules
	m.mu.RUnlock()
	return DetectMode(rules, dets)
}

// AutoDetect sets the mode from dets when the evidence is unambiguous.
// It returns the resulting current mode.
func (m *Manager) AutoDetect(dets []perception.Detection) Mode {
	if md, ok := m.DetectMode(dets); ok {
		_ = m.SetMode(md) // md comes from the rules, which only name declared modes
	}
	return m.Current()
}

// resolve maps None to the current mode. Caller holds the lock.
func (m *Manager) resolve(md Mode) (Mode, error) {
	if md == None {
		if m.current == None {
			return None, ErrModeUnset
		}
		return m.current, nil
	}
	if !md.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownMode, md)
	}
	return md, nil
}

// ModeConfig returns a copy of md's feature configuration. None means the
// current mode. Features missing from the stored config are defaulted.
func (m *Manager) ModeConfig(md Mode) (FeatureConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	md, err := m.resolve(md)
	if err != nil {
		return nil, err
	}
	out := m.defaults[md].Clone()
	for k, v := range m.configs[md] {
		out[k] = v
	}
	return out.Clone(), nil
}

// UpdateModeConfig applies partial updates to md's configuration. None
// means the current mode.
func (m *Manager) UpdateModeConfig(md Mode, updates FeatureUpdates) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	md, err := m.resolve(md)
	if err != nil {
		return err
	}
	m.configs[md] = m.configs[md].Apply(updates)
	m.logger.Info("mode config updated", "mode", md, "features", len(updates))
	return nil
}

// ResetToDefaults restores md's baseline configuration. None means the current mode.
func (m *Manager) ResetToDefaults(md Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	md, err := m.resolve(md)
	if err != nil {
		return err
	}
	m.configs[md] = m.defaults[md].Clone()
	m.logger.Info("mode config reset", "mode", md)
	return nil
}

// ExecuteCurrentModeFeatures runs the feature strategies of the current
// mode. It returns state.None when no mode is set, leaving the fallback to
// the caller.
func (m *Manager) ExecuteCurrentModeFeatures(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) state.State {
	m.mu.RLock()
	md := m.current
	var cfg FeatureConfig
	if md != None {
		cfg = m.configs[md].Clone()
	}
	m.mu.RUnlock()

	if md == None || m.executor == nil {
		return state.None
	}
	return m.executor.ExecuteFeatures(ctx, md, dets, win, cfg)
}

// Summary describes the current mode.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary(m.current)
}

// Summaries describes every declared mode.
func (m *Manager) Summaries() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(declared))
	for _, md := range declared {
		out = append(out, m.summary(md))
	}
	return out
}

func (m *Manager) summary(md Mode) Summary {
	s := Summary{
		Mode:        md,
		DisplayName: md.DisplayName(),
		Current:     md != None && md == m.current,
	}
	if md != None {
		s.Enabled = m.configs[md].EnabledFeatures()
	}
	return s
}
