package state

import (
	"testing"
	"time"
)

func TestBase_Defaults(t *testing.T) {
	b := NewBase(Searching)
	if b.MaxDuration != 60*time.Second || b.MaxRetries != 3 {
		t.Errorf("defaults = %v/%d, want 60s/3", b.MaxDuration, b.MaxRetries)
	}
	if b.State() != Searching {
		t.Errorf("State() = %v", b.State())
	}
}

func TestBase_IsTimeout(t *testing.T) {
	b := NewBase(Engaged)
	b.MaxDuration = 45 * time.Second
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if b.IsTimeout(start, start.Add(45*time.Second)) {
		t.Error("exactly MaxDuration should not time out")
	}
	if !b.IsTimeout(start, start.Add(45*time.Second+time.Millisecond)) {
		t.Error("past MaxDuration should time out")
	}
	if b.TimedOut(start.Add(time.Hour)) {
		t.Error("a handler that was never entered should not time out")
	}
	b.Enter(start)
	if !b.TimedOut(start.Add(46 * time.Second)) {
		t.Error("TimedOut should use the entry time")
	}
}

func TestBase_RetryCount(t *testing.T) {
	b := NewBase(Searching)

	results := []bool{b.IncrementRetryCount(), b.IncrementRetryCount(), b.IncrementRetryCount()}
	want := []bool{false, false, true}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("IncrementRetryCount() #%d = %v, want %v", i+1, results[i], want[i])
		}
	}

	b.Enter(time.Now())
	if b.RetryCount() != 0 {
		t.Errorf("RetryCount() after Enter = %d, want 0", b.RetryCount())
	}
}

func TestCompletesCycle(t *testing.T) {
	tests := []struct {
		prev, next State
		want       bool
	}{
		{Returning, Home, true},
		{BBReturnHome, BBVillage, true},
		{Confirming, Home, false},
		{Returning, Searching, false},
	}
	for _, tt := range tests {
		if got := CompletesCycle(tt.prev, tt.next); got != tt.want {
			t.Errorf("CompletesCycle(%v, %v) = %v, want %v", tt.prev, tt.next, got, tt.want)
		}
	}
}
