package state

import "time"

// Handler defaults.
const (
	DefaultMaxDuration = 60 * time.Second
	DefaultMaxRetries  = 3
)

// Base carries the bookkeeping shared by every handler.
// Embed it and set MaxDuration / MaxRetries where the defaults do not fit.
type Base struct {
	MaxDuration time.Duration
	MaxRetries  int

	state      State
	retryCount int
	enteredAt  time.Time
}

// NewBase returns a Base for s with default limits.
func NewBase(s State) Base {
	return Base{
		MaxDuration: DefaultMaxDuration,
		MaxRetries:  DefaultMaxRetries,
		state:       s,
	}
}

// State returns the state served by the handler.
func (b *Base) State() State { return b.state }

// Enter records the entry time and resets the retry counter.
func (b *Base) Enter(now time.Time) {
	b.enteredAt = now
	b.retryCount = 0
}

// EnteredAt returns when the state last became current.
func (b *Base) EnteredAt() time.Time { return b.enteredAt }

// IsTimeout reports whether more than MaxDuration has passed since start.
func (b *Base) IsTimeout(start, now time.Time) bool {
	return now.Sub(start) > b.MaxDuration
}

// TimedOut reports whether the handler has been current for longer than MaxDuration.
// A handler that was never entered has not timed out.
func (b *Base) TimedOut(now time.Time) bool {
	if b.enteredAt.IsZero() {
		return false
	}
	return b.IsTimeout(b.enteredAt, now)
}

// IncrementRetryCount bumps the retry counter and reports whether the
// limit has been reached.
func (b *Base) IncrementRetryCount() bool {
	b.retryCount++
	return b.retryCount >= b.MaxRetries
}

// ResetRetryCount clears the retry counter.
func (b *Base) ResetRetryCount() { b.retryCount = 0 }

// RetryCount returns the current retry counter.
func (b *Base) RetryCount() int { return b.retryCount }
