package capitals

import (
	"context"
	"sort"
)

// Scheduler operations used by this package and its callers.
const (
	OpExpireRecentlyCaptured = "expire-recently-captured"
	OpSuccession             = "succession"
)

// TaskKey identifies a one-shot task. Scheduling a key that is already pending
// replaces the pending task, so re-entry never queues duplicates.
type TaskKey struct {
	Op     string
	Target string
}

func (k TaskKey) String() string { return k.Op + "/" + k.Target }

type task struct {
	key TaskKey
	due uint64
	seq uint64
	fn  func(context.Context)
}

// Scheduler holds one-shot tasks due on a simulated day. It is not safe for
// concurrent use; the owning session serialises access.
type Scheduler struct {
	tasks map[TaskKey]*task
	seq   uint64
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[TaskKey]*task)}
}

// Schedule registers fn to run once when RunDue is called with a day >= due.
func (s *Scheduler) Schedule(key TaskKey, due uint64, fn func(context.Context)) {
	s.seq++
	s.tasks[key] = &task{key: key, due: due, seq: s.seq, fn: fn}
}

// Cancel removes a pending task. It reports whether one was pending.
func (s *Scheduler) Cancel(key TaskKey) bool {
	if _, ok := s.tasks[key]; !ok {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Pending returns the due day of a pending task.
func (s *Scheduler) Pending(key TaskKey) (uint64, bool) {
	t, ok := s.tasks[key]
	if !ok {
		return 0, false
	}
	return t.due, true
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// RunDue fires every task due on or before day, in (due, scheduling order), and
// removes it first so a task may reschedule its own key. Tasks scheduled while
// running are left for a later call. Returns the number of tasks fired.
func (s *Scheduler) RunDue(ctx context.Context, day uint64) int {
	var due []*task
	for _, t := range s.tasks {
		if t.due <= day {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		delete(s.tasks, t.key)
	}
	for _, t := range due {
		t.fn(ctx)
	}
	return len(due)
}

// Clear drops every pending task without running it.
func (s *Scheduler) Clear() {
	for k := range s.tasks {
		delete(s.tasks, k)
	}
}
