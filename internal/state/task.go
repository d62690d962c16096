package state

import (
	"context"
	"sort"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Task is one prioritised step inside a TaskHandler.
type Task struct {
	Name        string
	Description string
	Priority    int
	Condition   func(dets []perception.Detection) bool
	Action      func(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (State, error)
}

// TaskList keeps tasks sorted by descending priority.
// Tasks with equal priority keep the order in which they were added.
type TaskList struct {
	tasks []Task
}

// Add inserts a task.
func (l *TaskList) Add(t Task) {
	l.tasks = append(l.tasks, t)
	sort.SliceStable(l.tasks, func(i, j int) bool {
		return l.tasks[i].Priority > l.tasks[j].Priority
	})
}

// Tasks returns the tasks in execution order.
func (l *TaskList) Tasks() []Task {
	out := make([]Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Run executes the first task whose condition holds and returns its result.
// ran is false when no condition held.
func (l *TaskList) Run(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (next State, ran bool, err error) {
	for _, t := range l.tasks {
		if t.Condition != nil && !t.Condition(dets) {
			continue
		}
		next, err = t.Action(ctx, dets, win)
		return next, true, err
	}
	return None, false, nil
}

// TaskHandler is a Handler driven by a TaskList and a Signature.
type TaskHandler struct {
	Base
	sig   Signature
	tasks TaskList
}

// NewTaskHandler creates a task-list handler for s matching sig.
func NewTaskHandler(s State, sig Signature) *TaskHandler {
	return &TaskHandler{Base: NewBase(s), sig: sig}
}

// AddTask appends a task to the handler.
func (h *TaskHandler) AddTask(t Task) *TaskHandler {
	h.tasks.Add(t)
	return h
}

// Tasks returns the handler's tasks in execution order.
func (h *TaskHandler) Tasks() []Task { return h.tasks.Tasks() }

// Signature returns the applicability signature.
func (h *TaskHandler) Signature() Signature { return h.sig }

// CanHandle reports whether the signature matches.
func (h *TaskHandler) CanHandle(dets []perception.Detection) bool {
	return h.sig.Matches(dets)
}

// Execute runs the first applicable task.
func (h *TaskHandler) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (State, error) {
	next, _, err := h.tasks.Run(ctx, dets, win)
	return next, err
}
