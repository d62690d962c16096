package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/state"
)

// mockRepository records calls. block, when set, stalls every write until closed.
type mockRepository struct {
	mu          sync.Mutex
	transitions []engine.Transition
	summaries   []engine.Summary
	block       chan struct{}
}

func (m *mockRepository) wait() {
	if m.block != nil {
		<-m.block
	}
}

func (m *mockRepository) RecordTransition(_ context.Context, t engine.Transition) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t)
	return nil
}

func (m *mockRepository) EndSession(_ context.Context, s engine.Summary) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *mockRepository) GetSession(context.Context, string) (*Session, error) {
	return nil, ErrSessionNotFound
}

func (m *mockRepository) ListSessions(context.Context, int) ([]Session, error) {
	return nil, nil
}

func (m *mockRepository) ListTransitions(context.Context, string, int) ([]TransitionRecord, error) {
	return nil, nil
}

func closeObserver(t *testing.T, o *Observer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestObserver_WritesInOrder(t *testing.T) {
	repo := &mockRepository{}
	obs := NewObserver(repo, 8, nil)
	obs.Start()

	obs.OnTransition(engine.Transition{SessionID: "s", To: state.Home, Reason: engine.ReasonStart})
	obs.OnCycle(engine.Status{})
	obs.OnTransition(engine.Transition{SessionID: "s", From: state.Home, To: state.Searching, Reason: engine.ReasonHandler})
	obs.OnSessionEnd(engine.Summary{SessionID: "s", Reason: engine.EndStopped})
	closeObserver(t, obs)

	if len(repo.transitions) != 2 || repo.transitions[1].To != state.Searching {
		t.Errorf("transitions = %+v", repo.transitions)
	}
	if len(repo.summaries) != 1 || repo.summaries[0].Reason != engine.EndStopped {
		t.Errorf("summaries = %+v", repo.summaries)
	}
}

func TestObserver_FullQueueDropsTransitions(t *testing.T) {
	repo := &mockRepository{block: make(chan struct{})}
	obs := NewObserver(repo, 1, nil)
	obs.Start()

	// The first write occupies the writer, the second fills the queue.
	for range 5 {
		obs.OnTransition(engine.Transition{SessionID: "s"})
	}
	deadline := time.Now().Add(time.Second)
	for obs.Dropped() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := obs.Dropped(); got < 3 {
		t.Errorf("Dropped() = %d, want at least 3", got)
	}

	close(repo.block)
	closeObserver(t, obs)
}

func TestObserver_EventsAfterCloseAreDiscarded(t *testing.T) {
	repo := &mockRepository{}
	obs := NewObserver(repo, 4, nil)
	obs.Start()
	closeObserver(t, obs)

	obs.OnTransition(engine.Transition{SessionID: "late"})
	obs.OnSessionEnd(engine.Summary{SessionID: "late"})

	if len(repo.transitions) != 0 || len(repo.summaries) != 0 {
		t.Error("events after Close should not reach the repository")
	}
	closeObserver(t, obs)
}

func TestObserver_CloseHonoursContext(t *testing.T) {
	repo := &mockRepository{block: make(chan struct{})}
	obs := NewObserver(repo, 4, nil)
	obs.Start()
	obs.OnTransition(engine.Transition{SessionID: "s"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := obs.Close(ctx); err == nil {
		t.Error("Close() should time out while a write is stalled")
	}
	close(repo.block)
}

func TestObserver_WithSQLite(t *testing.T) {
	repo := setupTestRepo(t)
	obs := NewObserver(repo, 0, nil)
	obs.Start()

	obs.OnTransition(transition("live", "", state.Home, engine.ReasonStart, 0))
	obs.OnTransition(transition("live", state.Home, state.Error, engine.ReasonNoHandler, time.Second))
	obs.OnSessionEnd(engine.Summary{SessionID: "live", StartedAt: epoch, EndedAt: epoch.Add(time.Minute), Reason: engine.EndCancelled})
	closeObserver(t, obs)

	s, err := repo.GetSession(context.Background(), "live")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if s.Transitions != 2 || s.EndReason != engine.EndCancelled {
		t.Errorf("session = %+v", s)
	}
}
