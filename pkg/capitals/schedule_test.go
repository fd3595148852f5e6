package capitals

import (
	"context"
	"reflect"
	"testing"
)

func TestSchedulerRunsInDueOrder(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler()
	var got []string
	s.Schedule(TaskKey{Op: "a", Target: "1"}, 3, func(context.Context) { got = append(got, "a1") })
	s.Schedule(TaskKey{Op: "a", Target: "2"}, 1, func(context.Context) { got = append(got, "a2") })
	s.Schedule(TaskKey{Op: "b", Target: "1"}, 1, func(context.Context) { got = append(got, "b1") })

	if n := s.RunDue(ctx, 0); n != 0 {
		t.Fatalf("nothing is due on day 0, ran %d", n)
	}
	if n := s.RunDue(ctx, 5); n != 3 {
		t.Fatalf("expected 3 tasks, ran %d", n)
	}
	want := []string{"a2", "b1", "a1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("run order = %v, want %v", got, want)
	}
	if s.Len() != 0 {
		t.Errorf("one-shot tasks should be gone, %d left", s.Len())
	}
}

func TestSchedulerReplacesPendingKey(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler()
	key := TaskKey{Op: OpSuccession, Target: "vlandia"}
	calls := 0
	s.Schedule(key, 1, func(context.Context) { calls += 10 })
	s.Schedule(key, 2, func(context.Context) { calls++ })

	if due, ok := s.Pending(key); !ok || due != 2 {
		t.Fatalf("expected pending at day 2, got %d (ok=%v)", due, ok)
	}
	s.RunDue(ctx, 1)
	if calls != 0 {
		t.Error("replaced task should not run")
	}
	s.RunDue(ctx, 2)
	if calls != 1 {
		t.Errorf("expected replacement to run once, calls=%d", calls)
	}
	s.RunDue(ctx, 3)
	if calls != 1 {
		t.Errorf("task ran twice, calls=%d", calls)
	}
}

func TestSchedulerCancel(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler()
	key := TaskKey{Op: OpExpireRecentlyCaptured, Target: "town_V5"}
	ran := false
	s.Schedule(key, 1, func(context.Context) { ran = true })

	if !s.Cancel(key) {
		t.Fatal("expected cancel to find the task")
	}
	if s.Cancel(key) {
		t.Error("second cancel should report nothing pending")
	}
	s.RunDue(ctx, 10)
	if ran {
		t.Error("cancelled task ran")
	}
}

func TestSchedulerTaskMayRescheduleItself(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler()
	key := TaskKey{Op: "tick", Target: "x"}
	runs := 0
	var fn func(context.Context)
	fn = func(context.Context) {
		runs++
		if runs < 3 {
			s.Schedule(key, uint64(runs+1), fn)
		}
	}
	s.Schedule(key, 1, fn)

	s.RunDue(ctx, 1)
	if runs != 1 {
		t.Fatalf("rescheduled task should wait for a later call, runs=%d", runs)
	}
	s.RunDue(ctx, 2)
	s.RunDue(ctx, 3)
	if runs != 3 {
		t.Errorf("expected 3 runs, got %d", runs)
	}
	if s.Len() != 0 {
		t.Errorf("expected no pending tasks, got %d", s.Len())
	}
}

func TestSchedulerClear(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler()
	s.Schedule(TaskKey{Op: "a"}, 1, func(context.Context) { t.Error("cleared task ran") })
	s.Clear()
	s.RunDue(ctx, 1)
	if s.Len() != 0 {
		t.Error("expected empty scheduler")
	}
}

func TestTaskKeyString(t *testing.T) {
	k := TaskKey{Op: OpSuccession, Target: "vlandia"}
	if k.String() != "succession/vlandia" {
		t.Errorf("unexpected key string %q", k.String())
	}
}
