package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
)

const (
	// DefaultBuffer is the write queue length.
	DefaultBuffer = 256

	writeTimeout = 5 * time.Second
)

// Logger is the logging interface used by the journal.
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

type write struct {
	kind string
	run  func(context.Context) error
}

// Observer records engine events into a Repository.
//
// Thread Safety: all methods are safe for concurrent use. Start must be
// called once before events are delivered.
type Observer struct {
	repo   Repository
	logger Logger

	mu     sync.RWMutex
	closed bool
	queue  chan write
	done   chan struct{}

	dropped atomic.Int64
}

var _ engine.Observer = (*Observer)(nil)

// NewObserver creates a journal observer. A buffer below one uses DefaultBuffer.
func NewObserver(repo Repository, buffer int, logger Logger) *Observer {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Observer{
		repo:   repo,
		logger: logger,
		queue:  make(chan write, buffer),
		done:   make(chan struct{}),
	}
}

// Start launches the writer goroutine. It exits when Close drains the queue.
func (o *Observer) Start() {
	go o.drain()
}

func (o *Observer) drain() {
	defer close(o.done)
	for w := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.run(ctx); err != nil {
			o.logger.Error("journal write failed", "kind", w.kind, "error", err)
		}
		cancel()
	}
}

// OnTransition queues the transition. A full queue drops it.
func (o *Observer) OnTransition(t engine.Transition) {
	o.enqueue(write{kind: "transition", run: func(ctx context.Context) error {
		return o.repo.RecordTransition(ctx, t)
	}}, false)
}

// OnCycle implements engine.Observer. Per-cycle status is not journaled.
func (o *Observer) OnCycle(engine.Status) {}

// OnSessionEnd queues the summary, waiting for queue space if needed.
func (o *Observer) OnSessionEnd(s engine.Summary) {
	o.enqueue(write{kind: "session_end", run: func(ctx context.Context) error {
		return o.repo.EndSession(ctx, s)
	}}, true)
}

func (o *Observer) enqueue(w write, wait bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.logger.Warn("journal closed, event discarded", "kind", w.kind, "error", ErrClosed)
		return
	}
	if wait {
		o.queue <- w
		return
	}
	select {
	case o.queue <- w:
	default:
		n := o.dropped.Add(1)
		o.logger.Warn("journal queue full, event dropped", "kind", w.kind, "dropped", n)
	}
}

// Dropped returns how many events were discarded on a full queue.
func (o *Observer) Dropped() int64 {
	return o.dropped.Load()
}

// Close stops accepting events and waits for queued writes to finish or
// ctx to expire.
func (o *Observer) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
