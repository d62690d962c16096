package overlay

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/perception"
)

const clearScreen = "\x1b[H\x1b[2J"

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f87af")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#87d7ff"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a")).Width(9)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e4e4e4"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// Options configures a HUD.
type Options struct {
	// MaxDetections caps the detection list. Zero hides it.
	MaxDetections int

	// Clear redraws in place by clearing the terminal before each frame.
	Clear bool
}

// HUD writes one styled frame per iteration.
type HUD struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	opts   Options
}

// New creates a HUD writing to w.
func New(w io.Writer, opts Options) *HUD {
	return &HUD{w: w, opts: opts}
}

// Open creates a HUD for the configured output: "stderr", "stdout" or a file path.
func Open(output string, maxDetections int) (*HUD, error) {
	switch output {
	case "", "stderr":
		return New(os.Stderr, Options{MaxDetections: maxDetections, Clear: true}), nil
	case "stdout":
		return New(os.Stdout, Options{MaxDetections: maxDetections, Clear: true}), nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening overlay output: %w", err)
	}
	h := New(f, Options{MaxDetections: maxDetections})
	h.closer = f
	return h, nil
}

// Render draws s and the top detections.
func (h *HUD) Render(s engine.Status, dets []perception.Detection) error {
	frame := Frame(s, dets, h.opts.MaxDetections)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opts.Clear {
		frame = clearScreen + frame
	}
	_, err := io.WriteString(h.w, frame+"\n")
	return err
}

// Close releases the output file, if any.
func (h *HUD) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closer == nil {
		return nil
	}
	err := h.closer.Close()
	h.closer = nil
	return err
}

// Frame renders the HUD as a string.
func Frame(s engine.Status, dets []perception.Detection, maxDetections int) string {
	rows := []string{
		titleStyle.Render("VisionPilot"),
		row("State", valueStyle.Render(s.State.String())),
		row("Mode", valueStyle.Render(modeName(s))),
		row("Cycles", valueStyle.Render(fmt.Sprint(s.Cycles))),
		row("Errors", errorCount(s.Errors)),
		row("Runtime", valueStyle.Render(s.Runtime.Duration().Truncate(time.Second).String())),
	}
	if !s.WindowFound {
		rows = append(rows, warnStyle.Render("window not found"))
	}
	if s.DryRun {
		rows = append(rows, mutedStyle.Render("dry run"))
	}

	if maxDetections > 0 {
		top := topDetections(dets, maxDetections)
		if len(top) == 0 {
			rows = append(rows, mutedStyle.Render("no detections"))
		}
		for _, d := range top {
			c := d.Center()
			rows = append(rows, fmt.Sprintf("%s %s",
				valueStyle.Render(fmt.Sprintf("%-22s %.2f", d.Class, d.Confidence)),
				mutedStyle.Render(fmt.Sprintf("(%d,%d)", c.X, c.Y)),
			))
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func modeName(s engine.Status) string {
	if s.Mode == "" {
		return "unset"
	}
	return s.Mode.DisplayName()
}

func errorCount(n int) string {
	if n > 0 {
		return errorStyle.Render(fmt.Sprint(n))
	}
	return valueStyle.Render("0")
}

// topDetections returns the n most confident detections, stable on ties.
func topDetections(dets []perception.Detection, n int) []perception.Detection {
	out := make([]perception.Detection, len(dets))
	copy(out, dets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
