package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

var epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

// mockStrategy is a configurable Strategy for registry tests.
type mockStrategy struct {
	*Base
	applicable bool
	next       state.State
	err        error
	panicWith  any
	calls      int
}

func newMock(t Type, m mode.Mode, cooldown time.Duration, clk clock.Clock) *mockStrategy {
	return &mockStrategy{Base: NewBase(t, m, cooldown, "mock "+string(t), clk), applicable: true}
}

func (s *mockStrategy) CanExecute(_ []perception.Detection, cfg mode.FeatureConfig) bool {
	return s.Ready(cfg) && s.applicable
}

func (s *mockStrategy) Execute(context.Context, []perception.Detection, perception.WindowInfo) (state.State, error) {
	s.calls++
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.next, s.err
}

func enabled(types ...Type) mode.FeatureConfig {
	cfg := mode.FeatureConfig{}
	for _, t := range types {
		cfg[string(t)] = mode.FeatureSettings{Enabled: true}
	}
	return cfg
}

func TestRegistry_Register(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	if err := r.Register(newMock("a", mode.HomeVillage, time.Second, clk)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(newMock("a", mode.HomeVillage, time.Second, clk))
	if !errors.Is(err, ErrDuplicateStrategy) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateStrategy", err)
	}
	if err := r.Register(newMock("a", mode.BuilderBase, time.Second, clk)); err != nil {
		t.Errorf("same type in another mode should register: %v", err)
	}
	if err := r.Register(newMock("b", mode.Mode("moon_base"), time.Second, clk)); !errors.Is(err, ErrInvalidStrategy) {
		t.Errorf("unknown mode Register() error = %v, want ErrInvalidStrategy", err)
	}
	if err := r.Register(nil); !errors.Is(err, ErrInvalidStrategy) {
		t.Errorf("nil Register() error = %v, want ErrInvalidStrategy", err)
	}
}

func TestRegistry_SetExecutionOrder(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)
	for _, typ := range []Type{"a", "b", "c"} {
		if err := r.Register(newMock(typ, mode.HomeVillage, 0, clk)); err != nil {
			t.Fatal(err)
		}
	}

	dropped := r.SetExecutionOrder(mode.HomeVillage, []Type{"c", "ghost", "a", "c"})
	if len(dropped) != 2 {
		t.Errorf("dropped = %v, want ghost and the duplicate c", dropped)
	}

	got := r.ExecutionOrder(mode.HomeVillage)
	want := []Type{"c", "a"}
	if len(got) != len(want) {
		t.Fatalf("ExecutionOrder() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExecutionOrder()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if !r.Unregister(mode.HomeVillage, "c") {
		t.Error("Unregister(c) = false")
	}
	if got := r.ExecutionOrder(mode.HomeVillage); len(got) != 1 || got[0] != "a" {
		t.Errorf("order after Unregister = %v, want [a]", got)
	}
}

func TestExecuteFeatures_FirstTransitionStops(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	a := newMock("a", mode.HomeVillage, 10*time.Second, clk)
	a.next = state.Searching
	b := newMock("b", mode.HomeVillage, 10*time.Second, clk)
	b.next = state.Engaged
	_ = r.Register(a)
	_ = r.Register(b)

	got := r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("a", "b"))

	if got != state.Searching {
		t.Errorf("ExecuteFeatures() = %s, want searching", got)
	}
	if a.calls != 1 {
		t.Errorf("a.calls = %d, want 1", a.calls)
	}
	if b.calls != 0 {
		t.Errorf("b.calls = %d, want 0", b.calls)
	}
}

func TestExecuteFeatures_NoneContinues(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	a := newMock("a", mode.HomeVillage, 0, clk)
	b := newMock("b", mode.HomeVillage, 0, clk)
	b.next = state.Searching
	_ = r.Register(a)
	_ = r.Register(b)

	if got := r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("a", "b")); got != state.Searching {
		t.Errorf("ExecuteFeatures() = %s, want searching", got)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", a.calls, b.calls)
	}
}

func TestExecuteFeatures_FaultsAreContained(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*mockStrategy)
	}{
		{name: "error", mutate: func(s *mockStrategy) { s.err = errors.New("click failed") }},
		{name: "panic", mutate: func(s *mockStrategy) { s.panicWith = "boom" }},
		{name: "error with transition", mutate: func(s *mockStrategy) {
			s.err = errors.New("half done")
			s.next = state.Engaged
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			r := NewRegistry(clk)

			faulty := newMock("faulty", mode.HomeVillage, 10*time.Second, clk)
			tt.mutate(faulty)
			next := newMock("next", mode.HomeVillage, 10*time.Second, clk)
			_ = r.Register(faulty)
			_ = r.Register(next)

			got := r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("faulty", "next"))

			if got != state.None {
				t.Errorf("ExecuteFeatures() = %s, want none", got)
			}
			if !faulty.LastExecution().Equal(epoch) {
				t.Errorf("faulty.LastExecution() = %v, want %v", faulty.LastExecution(), epoch)
			}
			if !faulty.OnCooldown() {
				t.Error("faulty strategy should be cooling down")
			}
			if next.calls != 1 {
				t.Errorf("sibling calls = %d, want 1", next.calls)
			}
		})
	}
}

func TestExecuteFeatures_Skips(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	disabled := newMock("disabled", mode.HomeVillage, 0, clk)
	inapplicable := newMock("inapplicable", mode.HomeVillage, 0, clk)
	inapplicable.applicable = false
	other := newMock("other_mode", mode.BuilderBase, 0, clk)
	_ = r.Register(disabled)
	_ = r.Register(inapplicable)
	_ = r.Register(other)

	r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("inapplicable", "other_mode"))

	if disabled.calls+inapplicable.calls+other.calls != 0 {
		t.Errorf("calls = (%d, %d, %d), want none", disabled.calls, inapplicable.calls, other.calls)
	}
	if !inapplicable.LastExecution().IsZero() {
		t.Error("skipped strategy should not be stamped")
	}
}

func TestExecuteFeatures_CooldownSpacing(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	s := newMock("collect", mode.HomeVillage, 10*time.Second, clk)
	_ = r.Register(s)
	cfg := enabled("collect")

	var runs []time.Time
	for range 30 {
		before := s.calls
		r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, cfg)
		if s.calls > before {
			runs = append(runs, clk.Now())
		}
		clk.Advance(time.Second)
	}

	if len(runs) != 3 {
		t.Fatalf("executions = %d, want 3", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if gap := runs[i].Sub(runs[i-1]); gap < 10*time.Second {
			t.Errorf("gap %d = %v, want >= 10s", i, gap)
		}
	}
}

func TestExecuteFeatures_ToggleDoesNotResetCooldown(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)

	s := newMock("collect", mode.HomeVillage, 10*time.Second, clk)
	_ = r.Register(s)

	r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("collect"))
	clk.Advance(2 * time.Second)
	r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, mode.FeatureConfig{})
	clk.Advance(2 * time.Second)
	r.ExecuteFeatures(context.Background(), mode.HomeVillage, nil, perception.WindowInfo{}, enabled("collect"))

	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
}

func TestExecuteFeatures_CancelledContext(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)
	s := newMock("collect", mode.HomeVillage, 0, clk)
	_ = r.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := r.ExecuteFeatures(ctx, mode.HomeVillage, nil, perception.WindowInfo{}, enabled("collect")); got != state.None {
		t.Errorf("ExecuteFeatures() = %s, want none", got)
	}
	if s.calls != 0 {
		t.Errorf("calls = %d, want 0", s.calls)
	}
}

func TestBase_MarkExecutedMonotonic(t *testing.T) {
	clk := clock.NewManual(epoch)
	b := NewBase("x", mode.HomeVillage, time.Minute, "", clk)

	b.MarkExecuted(epoch.Add(time.Minute))
	b.MarkExecuted(epoch)

	if got := b.LastExecution(); !got.Equal(epoch.Add(time.Minute)) {
		t.Errorf("LastExecution() = %v, want the later stamp", got)
	}
}

func TestAvailable(t *testing.T) {
	clk := clock.NewManual(epoch)
	r := NewRegistry(clk)
	_ = r.Register(newMock("a", mode.BuilderBase, 5*time.Second, clk))

	infos := r.Available(mode.BuilderBase)
	if len(infos) != 1 || infos[0].Type != "a" || infos[0].Cooldown != 5*time.Second {
		t.Errorf("Available() = %+v", infos)
	}
	if len(r.Available(mode.HomeVillage)) != 0 {
		t.Error("Available(home_village) should be empty")
	}
}
