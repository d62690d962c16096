package mode

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// mockExecutor records calls and returns a canned state.
type mockExecutor struct {
	calls   int
	lastCfg FeatureConfig
	mode    Mode
	result  state.State
}

func (e *mockExecutor) ExecuteFeatures(_ context.Context, m Mode, _ []perception.Detection, _ perception.WindowInfo, cfg FeatureConfig) state.State {
	e.calls++
	e.mode = m
	e.lastCfg = cfg
	return e.result
}

func dets(classes ...string) []perception.Detection {
	out := make([]perception.Detection, 0, len(classes))
	for _, c := range classes {
		out = append(out, perception.Detection{Class: c, Confidence: 0.9})
	}
	return out
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		want    Mode
		wantOK  bool
	}{
		{"find now is builder base", []string{"find_now", "attack"}, BuilderBase, true},
		{"clan capital is home village", []string{"clan_capital_button"}, HomeVillage, true},
		{"attack alone is home village", []string{"attack"}, HomeVillage, true},
		{"attack button alone is home village", []string{"attack_button"}, HomeVillage, true},
		{"no markers is ambiguous", []string{"okay", "return_home"}, None, false},
		{"empty is ambiguous", nil, None, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 3 {
				got, ok := DetectMode(DefaultRules(), dets(tt.classes...))
				if got != tt.want || ok != tt.wantOK {
					t.Fatalf("DetectMode() = %v,%v; want %v,%v", got, ok, tt.want, tt.wantOK)
				}
			}
		})
	}
}

func TestManager_AutoDetectKeepsPriorOnAmbiguity(t *testing.T) {
	m := NewManager(nil)
	_ = m.SetMode(BuilderBase)

	if got := m.AutoDetect(dets("okay")); got != BuilderBase {
		t.Errorf("AutoDetect(ambiguous) = %v, want builder_base", got)
	}
	if got := m.AutoDetect(dets("clan_capital_button")); got != HomeVillage {
		t.Errorf("AutoDetect(clan capital) = %v, want home_village", got)
	}
}

func TestManager_SetMode(t *testing.T) {
	m := NewManager(nil)

	if err := m.SetMode("lobby"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("SetMode(lobby) error = %v, want ErrUnknownMode", err)
	}
	for range 2 {
		if err := m.SetMode(HomeVillage); err != nil {
			t.Fatalf("SetMode() error = %v", err)
		}
	}
	if m.Current() != HomeVillage {
		t.Errorf("Current() = %v", m.Current())
	}
}

func TestManager_ModeConfigDefaults(t *testing.T) {
	m := NewManager(nil)

	if _, err := m.ModeConfig(None); !errors.Is(err, ErrModeUnset) {
		t.Errorf("ModeConfig(None) with no mode error = %v, want ErrModeUnset", err)
	}

	for _, md := range All() {
		cfg, err := m.ModeConfig(md)
		if err != nil {
			t.Fatalf("ModeConfig(%v) error = %v", md, err)
		}
		if len(cfg) == 0 {
			t.Errorf("ModeConfig(%v) is empty", md)
		}
	}

	hv, _ := m.ModeConfig(HomeVillage)
	if !hv.Enabled("hv_collect_resources") || !hv.Enabled("hv_attack") || hv.Enabled("hv_train_troops") {
		t.Errorf("unexpected home village defaults: %+v", hv)
	}
	if !hv.Bool("hv_attack", "check_army_ready", false) {
		t.Error("check_army_ready should default to true")
	}
}

func TestManager_ModeConfigIsACopy(t *testing.T) {
	m := NewManager(nil)
	cfg, _ := m.ModeConfig(HomeVillage)
	cfg["hv_train_troops"] = FeatureSettings{Enabled: true}

	again, _ := m.ModeConfig(HomeVillage)
	if again.Enabled("hv_train_troops") {
		t.Error("mutating a returned config changed the store")
	}
}

func TestManager_UpdateAndReset(t *testing.T) {
	m := NewManager(nil)
	_ = m.SetMode(HomeVillage)

	on := true
	err := m.UpdateModeConfig(None, FeatureUpdates{
		"hv_train_troops": {Enabled: &on},
		"hv_attack":       {Tunables: map[string]any{"check_army_ready": false}},
	})
	if err != nil {
		t.Fatalf("UpdateModeConfig() error = %v", err)
	}

	cfg, _ := m.ModeConfig(None)
	if !cfg.Enabled("hv_train_troops") {
		t.Error("hv_train_troops should be enabled after update")
	}
	if cfg.Bool("hv_attack", "check_army_ready", true) {
		t.Error("check_army_ready should be false after update")
	}
	if !cfg.Enabled("hv_attack") {
		t.Error("a tunables-only update must keep hv_attack enabled")
	}

	if err := m.ResetToDefaults(HomeVillage); err != nil {
		t.Fatalf("ResetToDefaults() error = %v", err)
	}
	cfg, _ = m.ModeConfig(HomeVillage)
	if cfg.Enabled("hv_train_troops") {
		t.Error("hv_train_troops should be disabled after reset")
	}
}

func TestManager_SetDefaultsMergesBuiltins(t *testing.T) {
	m := NewManager(nil)
	if err := m.SetDefaults(BuilderBase, FeatureConfig{"bb_upgrade_buildings": {Enabled: true}}); err != nil {
		t.Fatal(err)
	}
	cfg, _ := m.ModeConfig(BuilderBase)
	if !cfg.Enabled("bb_upgrade_buildings") || !cfg.Enabled("bb_collect_resources") {
		t.Errorf("SetDefaults lost built-ins: %+v", cfg)
	}
}

func TestManager_ExecuteCurrentModeFeatures(t *testing.T) {
	exec := &mockExecutor{result: state.Searching}
	m := NewManager(exec)

	if got := m.ExecuteCurrentModeFeatures(context.Background(), nil, perception.WindowInfo{}); got != state.None {
		t.Errorf("with no mode got %v, want none", got)
	}
	if exec.calls != 0 {
		t.Error("executor called without a mode")
	}

	_ = m.SetMode(HomeVillage)
	if got := m.ExecuteCurrentModeFeatures(context.Background(), nil, perception.WindowInfo{}); got != state.Searching {
		t.Errorf("ExecuteCurrentModeFeatures() = %v, want searching", got)
	}
	if exec.mode != HomeVillage || !exec.lastCfg.Enabled("hv_attack") {
		t.Errorf("executor got mode %v cfg %+v", exec.mode, exec.lastCfg)
	}
}

func TestManager_Summaries(t *testing.T) {
	m := NewManager(nil)
	_ = m.SetMode(BuilderBase)

	s := m.Summary()
	if s.Mode != BuilderBase || s.DisplayName != "Builder Base" || !s.Current {
		t.Errorf("Summary() = %+v", s)
	}
	if len(m.Summaries()) != len(All()) {
		t.Errorf("Summaries() length = %d", len(m.Summaries()))
	}
}
