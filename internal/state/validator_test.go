package state

import (
	"errors"
	"testing"

	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
)

func TestSignatureValidatorFromConfig(t *testing.T) {
	high := 90
	states := map[string]config.StateConfig{
		"confirming": {
			Indicators: config.IndicatorConfig{Required: []string{"okay"}},
		},
		"returning": {
			Priority:   &high,
			Indicators: config.IndicatorConfig{Any: []string{"return_home", "okay"}},
		},
		"engaged": {
			// Timing only; no explicit signature.
			Timing: config.StateTimingConfig{MaxDuration: 40},
		},
	}

	v, err := SignatureValidatorFromConfig(states, func(State) int { return 10 })
	if err != nil {
		t.Fatalf("SignatureValidatorFromConfig() error = %v", err)
	}
	if n := len(v.Rules()); n != 2 {
		t.Fatalf("Rules() = %d, want 2", n)
	}

	if got, ok := v.FindMatchingState(dets("okay")); !ok || got != Returning {
		t.Errorf("FindMatchingState(okay) = %v,%v; want returning by priority", got, ok)
	}
	if _, ok := v.FindMatchingState(dets("enemy_base")); ok {
		t.Error("FindMatchingState matched unconfigured evidence")
	}
}

func TestSignatureValidatorFromConfig_UnknownState(t *testing.T) {
	states := map[string]config.StateConfig{
		"lobby": {Indicators: config.IndicatorConfig{Required: []string{"x"}}},
	}
	if _, err := SignatureValidatorFromConfig(states, nil); !errors.Is(err, ErrUnknownState) {
		t.Errorf("error = %v, want ErrUnknownState", err)
	}
}

func TestSignatureValidator_FindMatchingStateIn(t *testing.T) {
	v := NewSignatureValidator([]SignatureRule{
		{State: BBConfirm, Priority: 57, Signature: Signature{AllOf: []string{"okay"}}},
		{State: Confirming, Priority: 55, Signature: Signature{AnyOf: []string{"okay"}}},
	})

	if got, ok := v.FindMatchingStateIn(dets("okay"), ScopeHomeVillage); !ok || got != Confirming {
		t.Errorf("home village = %v,%v; want confirming", got, ok)
	}
	if got, ok := v.FindMatchingStateIn(dets("okay"), ScopeBuilderBase); !ok || got != BBConfirm {
		t.Errorf("builder base = %v,%v; want bb_confirm", got, ok)
	}
	if got, ok := v.FindMatchingState(dets("okay")); !ok || got != BBConfirm {
		t.Errorf("unscoped = %v,%v; want bb_confirm by priority", got, ok)
	}
}
