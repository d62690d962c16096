package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/infrastructure/database"
	"github.com/nerrad567/visionpilot/internal/state"
	_ "github.com/nerrad567/visionpilot/migrations"
)

// setupTestRepo opens an in-memory database with the real journal schema.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

var epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func transition(session string, from, to state.State, reason string, offset time.Duration) engine.Transition {
	return engine.Transition{SessionID: session, From: from, To: to, Reason: reason, At: epoch.Add(offset)}
}

func TestRecordTransition_CreatesSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	steps := []engine.Transition{
		transition("s1", "", state.Home, engine.ReasonStart, 0),
		transition("s1", state.Home, state.Searching, engine.ReasonHandler, 2*time.Second),
		transition("s1", state.Searching, state.Engaged, engine.ReasonDetected, 9*time.Second),
	}
	for _, tr := range steps {
		if err := repo.RecordTransition(ctx, tr); err != nil {
			t.Fatalf("RecordTransition(%s→%s) error = %v", tr.From, tr.To, err)
		}
	}

	s, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !s.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt, epoch)
	}
	if !s.Running() {
		t.Error("session without an end should be running")
	}
	if s.Transitions != 3 {
		t.Errorf("Transitions = %d, want 3", s.Transitions)
	}

	got, err := repo.ListTransitions(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListTransitions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListTransitions() = %d rows, want 3", len(got))
	}
	if got[0].From != "" || got[0].To != string(state.Home) || got[0].Reason != engine.ReasonStart {
		t.Errorf("first transition = %+v", got[0])
	}
	if got[2].To != string(state.Engaged) || !got[2].At.Equal(epoch.Add(9*time.Second)) {
		t.Errorf("last transition = %+v", got[2])
	}
}

func TestEndSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.RecordTransition(ctx, transition("s1", "", state.Home, engine.ReasonStart, 0)); err != nil {
		t.Fatalf("RecordTransition() error = %v", err)
	}
	summary := engine.Summary{
		SessionID:  "s1",
		StartedAt:  epoch,
		EndedAt:    epoch.Add(10 * time.Minute),
		Cycles:     4,
		Errors:     1,
		Iterations: 1800,
		DryRun:     true,
		Reason:     engine.EndStopped,
	}
	if err := repo.EndSession(ctx, summary); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	s, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if s.Running() {
		t.Error("ended session reported as running")
	}
	if s.Cycles != 4 || s.Errors != 1 || s.Iterations != 1800 || !s.DryRun || s.EndReason != engine.EndStopped {
		t.Errorf("session = %+v", s)
	}
	if s.Transitions != 1 {
		t.Errorf("Transitions = %d, want 1", s.Transitions)
	}
}

func TestEndSession_WithoutTransitions(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	err := repo.EndSession(ctx, engine.Summary{
		SessionID: "lonely",
		StartedAt: epoch,
		EndedAt:   epoch.Add(time.Second),
		Reason:    engine.EndCancelled,
	})
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	s, err := repo.GetSession(ctx, "lonely")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if s.Transitions != 0 || s.EndReason != engine.EndCancelled {
		t.Errorf("session = %+v", s)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions_NewestFirstWithLimit(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		tr := transition(id, "", state.Home, engine.ReasonStart, time.Duration(i)*time.Hour)
		if err := repo.RecordTransition(ctx, tr); err != nil {
			t.Fatalf("RecordTransition(%s) error = %v", id, err)
		}
	}

	all, err := repo.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("ListSessions() order = %v", ids(all))
	}

	two, err := repo.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions(2) error = %v", err)
	}
	if len(two) != 2 || two[0].ID != "c" {
		t.Errorf("ListSessions(2) = %v", ids(two))
	}
}

func TestListSessions_EmptyIsNotNil(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.ListSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if got == nil {
		t.Error("ListSessions() = nil, want empty slice")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{5, 5},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func ids(ss []Session) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}
