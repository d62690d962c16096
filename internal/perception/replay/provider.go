package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Frame is one scripted detector answer.
type Frame struct {
	Detections []perception.Detection `json:"detections"`

	// Repeat serves the frame this many times. Zero means once.
	Repeat int `json:"repeat,omitempty"`
}

// yamlDetection mirrors perception.Detection for YAML scripts, which
// use the same keys as the JSON wire form.
type yamlDetection struct {
	Class      string  `yaml:"class"`
	Confidence float64 `yaml:"confidence"`
	BBox       struct {
		X1 int `yaml:"x1"`
		Y1 int `yaml:"y1"`
		X2 int `yaml:"x2"`
		Y2 int `yaml:"y2"`
	} `yaml:"bbox"`
}

type yamlFrame struct {
	Detections []yamlDetection `yaml:"detections"`
	Repeat     int             `yaml:"repeat"`
}

// Provider plays back a script.
//
// When the script runs out it starts again from the first frame if Loop
// is set, and otherwise keeps returning empty detections.
//
// Thread Safety: safe for concurrent use.
type Provider struct {
	frames []Frame
	loop   bool

	mu     sync.Mutex
	pos    int
	served int
	calls  int
}

var _ perception.Provider = (*Provider)(nil)

// New creates a provider from already-parsed frames.
func New(frames []Frame, loop bool) (*Provider, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyScript
	}
	return &Provider{frames: frames, loop: loop}, nil
}

// Load reads a script file. The format is chosen by extension.
func Load(path string, loop bool) (*Provider, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the CLI
	if err != nil {
		return nil, fmt.Errorf("reading replay script: %w", err)
	}

	var frames []Frame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		frames, err = ParseYAML(data)
	default:
		frames, err = ParseJSONL(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return New(frames, loop)
}

// ParseJSONL reads one frame per line.
func ParseJSONL(r io.Reader) ([]Frame, error) {
	var frames []Frame
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var f Frame
		dec := json.NewDecoder(strings.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidFrame, line, err)
		}
		if f.Repeat < 0 {
			return nil, fmt.Errorf("%w: line %d: negative repeat", ErrInvalidFrame, line)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning script: %w", err)
	}
	return frames, nil
}

// ParseYAML reads a YAML list of frames.
func ParseYAML(data []byte) ([]Frame, error) {
	var raw []yamlFrame
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	frames := make([]Frame, 0, len(raw))
	for i, rf := range raw {
		if rf.Repeat < 0 {
			return nil, fmt.Errorf("%w: frame %d: negative repeat", ErrInvalidFrame, i)
		}
		f := Frame{Repeat: rf.Repeat, Detections: make([]perception.Detection, 0, len(rf.Detections))}
		for _, d := range rf.Detections {
			f.Detections = append(f.Detections, perception.Detection{
				Class:      d.Class,
				Confidence: d.Confidence,
				Box:        perception.BBox{X1: d.BBox.X1, Y1: d.BBox.Y1, X2: d.BBox.X2, Y2: d.BBox.Y2},
			})
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Detect returns the next scripted frame. The frame argument is ignored.
func (p *Provider) Detect(ctx context.Context, _ perception.Frame) ([]perception.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.pos >= len(p.frames) {
		if !p.loop {
			return []perception.Detection{}, nil
		}
		p.pos, p.served = 0, 0
	}

	f := p.frames[p.pos]
	p.served++
	if p.served >= max(f.Repeat, 1) {
		p.pos++
		p.served = 0
	}

	out := make([]perception.Detection, len(f.Detections))
	copy(out, f.Detections)
	return out, nil
}

// Calls returns how many frames have been served.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Len returns the number of frames in the script.
func (p *Provider) Len() int { return len(p.frames) }
