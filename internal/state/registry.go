package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Overlap records two handlers whose signatures can match the same detections.
type Overlap struct {
	Winner State
	Loser  State
}

type entry struct {
	handler  Handler
	priority int
	seq      int
}

// Registry maps states to handlers and dispatches detections to them.
//
// Thread Safety:
//   - Register is expected at startup; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byState  map[State]*entry
	ordered  []*entry
	overlaps []Overlap
	logger   Logger
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		byState: make(map[State]*entry),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds h with the given dispatch priority (higher is checked first).
//
// Overlapping signatures are allowed but logged and recorded; the overlap
// is resolved by priority, then by registration order.
//
// Returns:
//   - error: ErrNilHandler, ErrUnknownState, or ErrDuplicateHandler
func (r *Registry) Register(h Handler, priority int) error {
	if h == nil {
		return ErrNilHandler
	}
	s := h.State()
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownState, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byState[s]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, s)
	}

	e := &entry{handler: h, priority: priority, seq: len(r.ordered)}
	r.checkOverlaps(e)

	r.byState[s] = e
	r.ordered = append(r.ordered, e)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		if r.ordered[i].priority != r.ordered[j].priority {
			return r.ordered[i].priority > r.ordered[j].priority
		}
		return r.ordered[i].seq < r.ordered[j].seq
	})

	r.logger.Debug("state handler registered", "state", s, "priority", priority)
	return nil
}

// checkOverlaps compares e against registered handlers. Caller holds the lock.
func (r *Registry) checkOverlaps(e *entry) {
	sig, ok := e.handler.(Signatured)
	if !ok {
		return
	}
	for _, other := range r.ordered {
		osig, ok := other.handler.(Signatured)
		if !ok || !sig.Signature().Overlaps(osig.Signature()) {
			continue
		}
		// Existing entries have lower seq, so they win equal-priority ties.
		winner, loser := other, e
		if e.priority > other.priority {
			winner, loser = e, other
		}
		ov := Overlap{Winner: winner.handler.State(), Loser: loser.handler.State()}
		r.overlaps = append(r.overlaps, ov)
		r.logger.Warn("overlapping state predicates",
			"winner", ov.Winner,
			"winner_priority", winner.priority,
			"loser", ov.Loser,
			"loser_priority", loser.priority,
			"equal_priority", winner.priority == loser.priority,
		)
	}
}

// Handler returns the handler for s.
func (r *Registry) Handler(s State) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byState[s]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// Handlers returns every registered handler in dispatch order.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, 0, len(r.ordered))
	for _, e := range r.ordered {
		out = append(out, e.handler)
	}
	return out
}

// States returns the registered states in dispatch order.
func (r *Registry) States() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.ordered))
	for _, e := range r.ordered {
		out = append(out, e.handler.State())
	}
	return out
}

// Overlaps returns the overlaps found at registration.
func (r *Registry) Overlaps() []Overlap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Overlap, len(r.overlaps))
	copy(out, r.overlaps)
	return out
}

// FindCurrentState returns the state of the first handler, in dispatch
// order, whose CanHandle accepts dets.
func (r *Registry) FindCurrentState(dets []perception.Detection) (State, bool) {
	return r.FindCurrentStateIn(dets, ScopeAny)
}

// FindCurrentStateIn is FindCurrentState restricted to handlers whose
// state belongs to scope. ScopeAny considers every handler.
func (r *Registry) FindCurrentStateIn(dets []perception.Detection, scope Scope) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ordered {
		if !e.handler.State().In(scope) {
			continue
		}
		if e.handler.CanHandle(dets) {
			return e.handler.State(), true
		}
	}
	return None, false
}
