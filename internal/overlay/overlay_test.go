package overlay

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

func TestFrame_ShowsCounters(t *testing.T) {
	s := engine.Status{
		State:       state.Engaged,
		Mode:        mode.HomeVillage,
		Cycles:      4,
		Errors:      2,
		Runtime:     engine.Seconds(95 * time.Second),
		WindowFound: true,
	}
	dets := []perception.Detection{
		{Class: "troop_panel", Confidence: 0.71},
		{Class: "enemy_base", Confidence: 0.93},
		{Class: "battle_timer", Confidence: 0.88},
	}

	out := Frame(s, dets, 2)

	for _, want := range []string{"engaged", "Home Village", "4", "2", "1m35s", "enemy_base", "battle_timer"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "troop_panel") {
		t.Errorf("frame shows more than 2 detections:\n%s", out)
	}
}

func TestFrame_Flags(t *testing.T) {
	out := Frame(engine.Status{DryRun: true}, nil, 3)

	for _, want := range []string{"window not found", "dry run", "no detections", "unset"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q:\n%s", want, out)
		}
	}
}

func TestHUD_Render(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, Options{MaxDetections: 1})

	if err := h.Render(engine.Status{State: state.Home, WindowFound: true}, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.HasPrefix(buf.String(), clearScreen) {
		t.Error("frame cleared the screen without Clear")
	}
	if !strings.Contains(buf.String(), "home") {
		t.Errorf("output = %q", buf.String())
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestTopDetections_StableOnTies(t *testing.T) {
	dets := []perception.Detection{
		{Class: "a", Confidence: 0.5},
		{Class: "b", Confidence: 0.9},
		{Class: "c", Confidence: 0.5},
	}
	got := topDetections(dets, 3)
	if got[0].Class != "b" || got[1].Class != "a" || got[2].Class != "c" {
		t.Errorf("topDetections() = %v", got)
	}
	if dets[0].Class != "a" {
		t.Error("input slice was reordered")
	}
}
