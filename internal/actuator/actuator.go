package actuator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Actuator clicks at absolute screen coordinates.
type Actuator interface {
	Click(ctx context.Context, p perception.Point) error
}

// Pointer is the low-level pointer driver.
type Pointer interface {
	MoveTo(ctx context.Context, p perception.Point, duration time.Duration) error
	Click(ctx context.Context) error
}

// Options configures a Clicker.
type Options struct {
	// MoveDuration is how long the pointer takes to reach the target.
	MoveDuration time.Duration

	// OffsetRadius jitters each click uniformly within a disc of this many pixels.
	OffsetRadius int

	// Rand supplies jitter. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// Clicker drives a Pointer.
type Clicker struct {
	pointer Pointer
	opts    Options

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClicker creates a Clicker for pointer.
func NewClicker(pointer Pointer, opts Options) *Clicker {
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Clicker{pointer: pointer, opts: opts, rng: rng}
}

// Click moves to p (plus jitter) and clicks.
func (c *Clicker) Click(ctx context.Context, p perception.Point) error {
	target := p.Add(c.offset())
	if err := c.pointer.MoveTo(ctx, target, c.opts.MoveDuration); err != nil {
		return fmt.Errorf("moving pointer to %d,%d: %w", target.X, target.Y, err)
	}
	if err := c.pointer.Click(ctx); err != nil {
		return fmt.Errorf("clicking at %d,%d: %w", target.X, target.Y, err)
	}
	return nil
}

// offset returns a uniform point within the configured disc.
func (c *Clicker) offset() (dx, dy int) {
	if c.opts.OffsetRadius <= 0 {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := float64(c.opts.OffsetRadius) * math.Sqrt(c.rng.Float64())
	theta := 2 * math.Pi * c.rng.Float64()
	return int(math.Round(r * math.Cos(theta))), int(math.Round(r * math.Sin(theta)))
}

// Logger is the logging interface used by the actuator package.
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

// DryRun records clicks instead of performing them.
type DryRun struct {
	mu     sync.Mutex
	clicks []perception.Point
	logger Logger
}

// NewDryRun creates a DryRun actuator.
func NewDryRun() *DryRun {
	return &DryRun{logger: noopLogger{}}
}

// SetLogger sets the logger for the actuator.
func (d *DryRun) SetLogger(logger Logger) {
	d.logger = logger
}

// Click records p.
func (d *DryRun) Click(ctx context.Context, p perception.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.clicks = append(d.clicks, p)
	n := len(d.clicks)
	d.mu.Unlock()
	d.logger.Info("dry-run click suppressed", "x", p.X, "y", p.Y, "count", n)
	return nil
}

// Clicks returns the recorded clicks.
func (d *DryRun) Clicks() []perception.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]perception.Point, len(d.clicks))
	copy(out, d.clicks)
	return out
}

// Count returns the number of recorded clicks.
func (d *DryRun) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clicks)
}

// ClickWindowPoint clicks the window-relative point p.
func ClickWindowPoint(ctx context.Context, a Actuator, win perception.WindowInfo, p perception.Point) error {
	return a.Click(ctx, win.ToScreen(p))
}

// ClickDetection clicks the centre of d.
func ClickDetection(ctx context.Context, a Actuator, win perception.WindowInfo, d perception.Detection) error {
	return ClickWindowPoint(ctx, a, win, d.Center())
}

// ClickFraction clicks at the fractional window position f.
func ClickFraction(ctx context.Context, a Actuator, win perception.WindowInfo, f [2]float64) error {
	return ClickWindowPoint(ctx, a, win, win.Fraction(f[0], f[1]))
}
