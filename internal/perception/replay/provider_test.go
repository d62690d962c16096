package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/visionpilot/internal/perception"
)

func perceptionFrame() perception.Frame {
	return perception.Frame{Window: perception.NewWindowInfo(0, 0, 1280, 720)}
}

const script = `# home then searching
{"detections":[{"class":"attack","confidence":0.9,"bbox":{"x1":10,"y1":10,"x2":40,"y2":40}}]}

{"detections":[{"class":"searching_text","confidence":0.8,"bbox":{"x1":0,"y1":0,"x2":100,"y2":20}}],"repeat":2}
{"detections":[]}
`

func classes(t *testing.T, p *Provider, n int) []string {
	t.Helper()
	var out []string
	for range n {
		dets, err := p.Detect(context.Background(), perceptionFrame())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if len(dets) == 0 {
			out = append(out, "-")
			continue
		}
		out = append(out, dets[0].Class)
	}
	return out
}

func TestParseJSONL(t *testing.T) {
	frames, err := ParseJSONL(strings.NewReader(script))
	if err != nil {
		t.Fatalf("ParseJSONL() error = %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	if frames[1].Repeat != 2 || frames[0].Detections[0].Box.X2 != 40 {
		t.Errorf("frames = %+v", frames)
	}
}

func TestParseJSONL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", "detections: nope\n"},
		{"unknown field", `{"detections":[],"speed":2}` + "\n"},
		{"negative repeat", `{"detections":[],"repeat":-1}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJSONL(strings.NewReader(tt.in)); !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("ParseJSONL() error = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestProvider_NoLoopGoesQuiet(t *testing.T) {
	frames, _ := ParseJSONL(strings.NewReader(script))
	p, err := New(frames, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := strings.Join(classes(t, p, 6), ",")
	if want := "attack,searching_text,searching_text,-,-,-"; got != want {
		t.Errorf("sequence = %s, want %s", got, want)
	}
	if p.Calls() != 6 {
		t.Errorf("Calls() = %d, want 6", p.Calls())
	}
}

func TestProvider_Loop(t *testing.T) {
	frames, _ := ParseJSONL(strings.NewReader(script))
	p, _ := New(frames, true)

	got := strings.Join(classes(t, p, 6), ",")
	if want := "attack,searching_text,searching_text,-,attack,searching_text"; got != want {
		t.Errorf("sequence = %s, want %s", got, want)
	}
}

func TestProvider_ReturnsCopies(t *testing.T) {
	frames, _ := ParseJSONL(strings.NewReader(script))
	p, _ := New(frames[:1], true)

	first, _ := p.Detect(context.Background(), perceptionFrame())
	first[0].Class = "mutated"
	second, _ := p.Detect(context.Background(), perceptionFrame())
	if second[0].Class != "attack" {
		t.Errorf("script frame was mutated through a returned slice: %q", second[0].Class)
	}
}

func TestProvider_CancelledContext(t *testing.T) {
	p, _ := New([]Frame{{}}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Detect(ctx, perceptionFrame()); !errors.Is(err, context.Canceled) {
		t.Errorf("Detect() error = %v, want context.Canceled", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonl := filepath.Join(dir, "run.jsonl")
	if err := os.WriteFile(jsonl, []byte(script), 0600); err != nil {
		t.Fatal(err)
	}
	yml := filepath.Join(dir, "run.yaml")
	yamlScript := `
- detections:
    - class: find_now
      confidence: 0.95
      bbox: {x1: 5, y1: 5, x2: 25, y2: 15}
  repeat: 2
- detections: []
`
	if err := os.WriteFile(yml, []byte(yamlScript), 0600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantLen int
		wantErr error
	}{
		{"jsonl", jsonl, 3, nil},
		{"yaml", yml, 2, nil},
		{"empty", empty, 0, ErrEmptyScript},
		{"missing", filepath.Join(dir, "missing.jsonl"), 0, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(tt.path, true)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if p.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", p.Len(), tt.wantLen)
			}
		})
	}
}

func TestParseYAML_Boxes(t *testing.T) {
	frames, err := ParseYAML([]byte(`
- detections:
    - {class: okay, confidence: 0.7, bbox: {x1: 1, y1: 2, x2: 3, y2: 4}}
`))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	d := frames[0].Detections[0]
	if d.Class != "okay" || d.Box.X1 != 1 || d.Box.Y2 != 4 || d.Confidence != 0.7 {
		t.Errorf("detection = %+v", d)
	}
}
