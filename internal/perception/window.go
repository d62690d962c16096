package perception

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec // binary comes from trusted config
}

// wmctrl -lG: id desktop x y w h host title
var wmctrlLine = regexp.MustCompile(`^(\S+)\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(\d+)\s+(\d+)\s+(\S+)\s?(.*)$`)

// WindowEntry is one top-level window reported by the window manager.
type WindowEntry struct {
	ID     string
	Title  string
	Window WindowInfo
}

// WmctrlLocator finds windows by listing them with wmctrl.
type WmctrlLocator struct {
	binary string
	run    CommandRunner
}

// NewWmctrlLocator creates a locator using the wmctrl binary (default "wmctrl").
func NewWmctrlLocator(binary string) *WmctrlLocator {
	if binary == "" {
		binary = "wmctrl"
	}
	return &WmctrlLocator{binary: binary, run: execRunner}
}

// SetRunner replaces the command runner. Used by tests.
func (l *WmctrlLocator) SetRunner(r CommandRunner) {
	l.run = r
}

// Locate returns the first visible window whose title matches keyword.
//
// The keyword is a case-insensitive regular expression; a keyword that is
// not a valid expression is matched as a literal substring.
func (l *WmctrlLocator) Locate(ctx context.Context, keyword string) (WindowInfo, error) {
	re, err := KeywordPattern(keyword)
	if err != nil {
		return WindowInfo{}, err
	}

	out, err := l.run(ctx, l.binary, "-lG")
	if err != nil {
		return WindowInfo{}, fmt.Errorf("listing windows: %w", err)
	}

	entries, err := ParseWmctrl(out)
	if err != nil {
		return WindowInfo{}, err
	}
	if e, ok := FirstMatch(entries, re); ok {
		return e.Window, nil
	}
	return WindowInfo{}, fmt.Errorf("%w: %q", ErrWindowNotFound, keyword)
}

// KeywordPattern compiles a window keyword into a case-insensitive pattern.
func KeywordPattern(keyword string) (*regexp.Regexp, error) {
	if keyword == "" {
		return nil, ErrInvalidKeyword
	}
	if re, err := regexp.Compile("(?i)" + keyword); err == nil {
		return re, nil
	}
	return regexp.Compile("(?i)" + regexp.QuoteMeta(keyword))
}

// ParseWmctrl parses `wmctrl -lG` output. Zero-sized windows are skipped.
func ParseWmctrl(out []byte) ([]WindowEntry, error) {
	var entries []WindowEntry
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := wmctrlLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])
		w, _ := strconv.Atoi(m[5])
		h, _ := strconv.Atoi(m[6])
		if w == 0 || h == 0 {
			continue
		}
		entries = append(entries, WindowEntry{
			ID:     m[1],
			Title:  m[8],
			Window: NewWindowInfo(x, y, w, h),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading window list: %w", err)
	}
	return entries, nil
}

// FirstMatch returns the first entry whose title matches re.
func FirstMatch(entries []WindowEntry, re *regexp.Regexp) (WindowEntry, bool) {
	for _, e := range entries {
		if re.MatchString(e.Title) {
			return e, true
		}
	}
	return WindowEntry{}, false
}

// StaticLocator always returns the same rectangle.
type StaticLocator struct {
	Window WindowInfo
}

// Locate returns the configured rectangle regardless of keyword.
func (s StaticLocator) Locate(context.Context, string) (WindowInfo, error) {
	return s.Window, nil
}

// RegionCapturer produces region-only frames. The detector sidecar grabs the
// pixels for the region itself.
type RegionCapturer struct {
	now func() time.Time
}

// NewRegionCapturer creates a RegionCapturer using now for timestamps.
func NewRegionCapturer(now func() time.Time) *RegionCapturer {
	if now == nil {
		now = time.Now
	}
	return &RegionCapturer{now: now}
}

// Capture returns a frame describing win.
func (c *RegionCapturer) Capture(ctx context.Context, win WindowInfo) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{Window: win, CapturedAt: c.now()}, nil
}

// Close releases nothing.
func (c *RegionCapturer) Close() error { return nil }
