package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManual_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if err := c.Sleep(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	c.Advance(500 * time.Millisecond)

	if got := c.Now().Sub(start); got != 2500*time.Millisecond {
		t.Errorf("elapsed = %v, want 2.5s", got)
	}
	if got := c.Slept(); got != 2*time.Second {
		t.Errorf("Slept() = %v, want 2s", got)
	}
}

func TestManual_SleepCancelled(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if !c.Now().Equal(time.Unix(0, 0)) {
		t.Error("cancelled sleep should not advance the clock")
	}
}

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (Real{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}
