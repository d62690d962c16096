package statusbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/infrastructure/mqtt"
	"github.com/nerrad567/visionpilot/internal/state"
)

const (
	// DefaultStatusInterval spaces retained status snapshots.
	DefaultStatusInterval = time.Second

	// DefaultQueue is the outbound queue length.
	DefaultQueue = 64

	// DefaultStopTimeout bounds a stop request received over MQTT.
	DefaultStopTimeout = 30 * time.Second
)

// Publisher sends one message. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber registers an inbound handler. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller is the part of engine.Host driven by control messages.
type Controller interface {
	Start() error
	Stop(ctx context.Context) error
}

// Logger is the logging interface used by the bus.
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

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Options tunes a Bus. Zero values take the defaults.
type Options struct {
	QoS            byte
	StatusInterval time.Duration
	Queue          int
	StopTimeout    time.Duration
}

// Bus is an engine.Observer that publishes to MQTT.
//
// Thread Safety: all methods are safe for concurrent use.
type Bus struct {
	pub    Publisher
	topics mqtt.Topics
	opts   Options
	logger Logger

	mu         sync.Mutex
	lastStatus time.Time
	lastState  state.State
	closed     bool
	queue      chan message
	done       chan struct{}

	dropped atomic.Int64
}

var _ engine.Observer = (*Bus)(nil)

// New creates a bus publishing under topics. Call Start before events flow.
func New(pub Publisher, topics mqtt.Topics, opts Options, logger Logger) *Bus {
	if opts.StatusInterval == 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.Queue <= 0 {
		opts.Queue = DefaultQueue
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		pub:    pub,
		topics: topics,
		opts:   opts,
		logger: logger,
		queue:  make(chan message, opts.Queue),
		done:   make(chan struct{}),
	}
}

// Start launches the publishing goroutine.
func (b *Bus) Start() {
	go b.run()
}

func (b *Bus) run() {
	defer close(b.done)
	for m := range b.queue {
		if err := b.pub.Publish(m.topic, m.payload, b.opts.QoS, m.retained); err != nil {
			if errors.Is(err, mqtt.ErrNotConnected) {
				b.logger.Debug("status bus offline, message skipped", "topic", m.topic)
				continue
			}
			b.logger.Warn("status bus publish failed", "topic", m.topic, "error", err)
		}
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx
// to expire.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many messages were discarded on a full queue.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// OnCycle publishes a retained status snapshot when the interval has
// elapsed or the state changed.
func (b *Bus) OnCycle(s engine.Status) {
	b.mu.Lock()
	due := b.opts.StatusInterval < 0 ||
		b.lastStatus.IsZero() ||
		s.State != b.lastState ||
		s.UpdatedAt.Sub(b.lastStatus) >= b.opts.StatusInterval
	if due {
		b.lastStatus = s.UpdatedAt
		b.lastState = s.State
	}
	b.mu.Unlock()

	if due {
		b.send(b.topics.Status(), s, true)
	}
}

// OnTransition publishes the transition.
func (b *Bus) OnTransition(t engine.Transition) {
	b.send(b.topics.Transition(), t, false)
}

// OnSessionEnd publishes the summary and a final, non-running status.
func (b *Bus) OnSessionEnd(s engine.Summary) {
	b.send(b.topics.Session(), s, false)
	b.send(b.topics.Status(), engine.Status{
		SessionID: s.SessionID,
		Running:   false,
		Cycles:    s.Cycles,
		Errors:    s.Errors,
		Runtime:   s.Runtime,
		DryRun:    s.DryRun,
		UpdatedAt: s.EndedAt,
	}, true)
}

func (b *Bus) send(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("encoding status bus message", "topic", topic, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- message{topic: topic, payload: payload, retained: retained}:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("status bus queue full, message dropped", "topic", topic, "dropped", n)
	}
}

// BindControl subscribes to the control topics and forwards requests to ctl.
func (b *Bus) BindControl(sub Subscriber, ctl Controller) error {
	handler := func(topic string, _ []byte) error {
		return b.handleControl(ctl, topic)
	}
	if err := sub.Subscribe(b.topics.AllControl(), b.opts.QoS, handler); err != nil {
		return fmt.Errorf("subscribing to control topics: %w", err)
	}
	return nil
}

func (b *Bus) handleControl(ctl Controller, topic string) error {
	action, ok := b.topics.ControlAction(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, topic)
	}

	switch action {
	case mqtt.ActionStart:
		b.logger.Info("start requested over mqtt")
		if err := ctl.Start(); err != nil {
			if errors.Is(err, engine.ErrRunning) {
				return nil
			}
			return fmt.Errorf("starting session: %w", err)
		}
		return nil

	case mqtt.ActionStop:
		b.logger.Info("stop requested over mqtt")
		ctx, cancel := context.WithTimeout(context.Background(), b.opts.StopTimeout)
		defer cancel()
		if err := ctl.Stop(ctx); err != nil {
			if errors.Is(err, engine.ErrNotRunning) {
				return nil
			}
			return fmt.Errorf("stopping session: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}
