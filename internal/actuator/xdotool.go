package actuator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// CommandRunner runs an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // binary comes from trusted config
	if err != nil {
		return fmt.Errorf("%w: %s %v: %v (%s)", ErrPointerFailed, name, args, err, out)
	}
	return nil
}

// XdotoolPointer drives the X11 pointer through xdotool.
type XdotoolPointer struct {
	binary string
	run    CommandRunner
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewXdotoolPointer creates a pointer driver using binary (default "xdotool").
func NewXdotoolPointer(binary string, sleep func(ctx context.Context, d time.Duration) error) *XdotoolPointer {
	if binary == "" {
		binary = "xdotool"
	}
	return &XdotoolPointer{binary: binary, run: execRunner, sleep: sleep}
}

// SetRunner replaces the command runner. Used by tests.
func (x *XdotoolPointer) SetRunner(r CommandRunner) {
	x.run = r
}

// MoveTo warps the pointer to p and then waits out duration.
// xdotool has no animated move, so the duration is spent as a dwell.
func (x *XdotoolPointer) MoveTo(ctx context.Context, p perception.Point, duration time.Duration) error {
	if err := x.run(ctx, x.binary, "mousemove", "--sync", strconv.Itoa(p.X), strconv.Itoa(p.Y)); err != nil {
		return err
	}
	if duration > 0 && x.sleep != nil {
		return x.sleep(ctx, duration)
	}
	return nil
}

// Click presses and releases the left button.
func (x *XdotoolPointer) Click(ctx context.Context) error {
	return x.run(ctx, x.binary, "click", "1")
}
