package statusbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/infrastructure/mqtt"
	"github.com/nerrad567/visionpilot/internal/state"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type mockClient struct {
	mu       sync.Mutex
	messages []published
	err      error
	handlers map[string]mqtt.MessageHandler
}

func (m *mockClient) Publish(topic string, payload []byte, _ byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, published{topic, payload, retained})
	return nil
}

func (m *mockClient) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = map[string]mqtt.MessageHandler{}
	}
	m.handlers[topic] = h
	return nil
}

func (m *mockClient) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	for i, msg := range m.messages {
		out[i] = msg.topic
	}
	return out
}

type mockHost struct {
	starts, stops int
	startErr      error
	stopErr       error
}

func (h *mockHost) Start() error               { h.starts++; return h.startErr }
func (h *mockHost) Stop(context.Context) error { h.stops++; return h.stopErr }

var epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func drain(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestBus_StatusSampling(t *testing.T) {
	client := &mockClient{}
	bus := New(client, mqtt.NewTopics("visionpilot"), Options{}, nil)
	bus.Start()

	// 0.0s home (first), 0.3s home (skip), 0.6s searching (state change),
	// 0.9s searching (skip), 1.6s searching (interval).
	steps := []struct {
		offset time.Duration
		st     state.State
	}{
		{0, state.Home},
		{300 * time.Millisecond, state.Home},
		{600 * time.Millisecond, state.Searching},
		{900 * time.Millisecond, state.Searching},
		{1600 * time.Millisecond, state.Searching},
	}
	for _, s := range steps {
		bus.OnCycle(engine.Status{Running: true, State: s.st, UpdatedAt: epoch.Add(s.offset)})
	}
	drain(t, bus)

	if len(client.messages) != 3 {
		t.Fatalf("published %d status messages, want 3", len(client.messages))
	}
	for _, m := range client.messages {
		if m.topic != "visionpilot/status" || !m.retained {
			t.Errorf("message = %s retained=%v", m.topic, m.retained)
		}
	}
	var last engine.Status
	if err := json.Unmarshal(client.messages[2].payload, &last); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if last.State != state.Searching || !last.Running {
		t.Errorf("last status = %+v", last)
	}
}

func TestBus_TransitionAndSession(t *testing.T) {
	client := &mockClient{}
	bus := New(client, mqtt.NewTopics("vp"), Options{}, nil)
	bus.Start()

	bus.OnTransition(engine.Transition{SessionID: "s", From: state.Home, To: state.Searching, Reason: engine.ReasonHandler})
	bus.OnSessionEnd(engine.Summary{SessionID: "s", Cycles: 2, Reason: engine.EndStopped, EndedAt: epoch})
	drain(t, bus)

	want := []string{"vp/transition", "vp/session", "vp/status"}
	got := client.topics()
	if len(got) != len(want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if client.messages[0].retained || client.messages[1].retained || !client.messages[2].retained {
		t.Error("only the status snapshot should be retained")
	}

	var final engine.Status
	if err := json.Unmarshal(client.messages[2].payload, &final); err != nil {
		t.Fatalf("decoding final status: %v", err)
	}
	if final.Running || final.Cycles != 2 {
		t.Errorf("final status = %+v", final)
	}
}

func TestBus_PublishErrorsDoNotStopQueue(t *testing.T) {
	client := &mockClient{err: mqtt.ErrNotConnected}
	bus := New(client, mqtt.NewTopics(""), Options{}, nil)
	bus.Start()

	bus.OnTransition(engine.Transition{To: state.Home})
	bus.OnTransition(engine.Transition{To: state.Searching})
	drain(t, bus)

	if len(client.messages) != 0 {
		t.Errorf("messages = %d, want 0 while offline", len(client.messages))
	}
}

func TestBus_FullQueueDrops(t *testing.T) {
	client := &mockClient{}
	bus := New(client, mqtt.NewTopics(""), Options{Queue: 2}, nil)

	// Not started: nothing drains the queue.
	for range 5 {
		bus.OnTransition(engine.Transition{To: state.Home})
	}
	if got := bus.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}

	bus.Start()
	drain(t, bus)
	if len(client.messages) != 2 {
		t.Errorf("messages = %d, want 2", len(client.messages))
	}

	bus.OnTransition(engine.Transition{To: state.Home})
	if len(client.messages) != 2 {
		t.Error("messages after Close should be ignored")
	}
}

func TestBus_Control(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		host       *mockHost
		wantStarts int
		wantStops  int
		wantErr    error
	}{
		{"start", "visionpilot/control/start", &mockHost{}, 1, 0, nil},
		{"stop", "visionpilot/control/stop", &mockHost{}, 0, 1, nil},
		{"start while running", "visionpilot/control/start", &mockHost{startErr: engine.ErrRunning}, 1, 0, nil},
		{"stop while idle", "visionpilot/control/stop", &mockHost{stopErr: engine.ErrNotRunning}, 0, 1, nil},
		{"factory failure", "visionpilot/control/start", &mockHost{startErr: errors.New("no window")}, 1, 0, errors.New("")},
		{"unknown action", "visionpilot/control/pause", &mockHost{}, 0, 0, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			bus := New(client, mqtt.NewTopics("visionpilot"), Options{}, nil)
			if err := bus.BindControl(client, tt.host); err != nil {
				t.Fatalf("BindControl() error = %v", err)
			}
			handler, ok := client.handlers["visionpilot/control/+"]
			if !ok {
				t.Fatalf("control topic not subscribed: %v", client.handlers)
			}

			err := handler(tt.topic, nil)
			switch {
			case tt.wantErr == nil && err != nil:
				t.Errorf("handler error = %v, want nil", err)
			case tt.wantErr != nil && err == nil:
				t.Error("handler error = nil, want error")
			case errors.Is(tt.wantErr, ErrUnknownAction) && !errors.Is(err, ErrUnknownAction):
				t.Errorf("handler error = %v, want ErrUnknownAction", err)
			}
			if tt.host.starts != tt.wantStarts || tt.host.stops != tt.wantStops {
				t.Errorf("starts=%d stops=%d, want %d/%d", tt.host.starts, tt.host.stops, tt.wantStarts, tt.wantStops)
			}
		})
	}
}
