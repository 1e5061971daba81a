package frame

import (
	"context"
	"testing"
	"time"
)

func TestManualFrameRunsCallbacksAfterTasks(t *testing.T) {
	m := NewManual()
	var order []string
	m.NextFrame(func() { order = append(order, "frame") })
	m.Post(func() { order = append(order, "task") })

	m.Frame()

	if len(order) != 2 || order[0] != "task" || order[1] != "frame" {
		t.Fatalf("order = %v, want [task frame]", order)
	}
}

func TestManualCallbackRegisteredDuringFrameWaitsForNextFrame(t *testing.T) {
	m := NewManual()
	runs := 0
	m.NextFrame(func() {
		runs++
		m.NextFrame(func() { runs++ })
	})

	m.Frame()
	if runs != 1 {
		t.Fatalf("runs after first frame = %d, want 1", runs)
	}
	m.Frame()
	if runs != 2 {
		t.Fatalf("runs after second frame = %d, want 2", runs)
	}
}

func TestManualAdvanceFiresDueTimersInOrder(t *testing.T) {
	m := NewManual()
	var fired []int
	m.AfterFunc(200*time.Millisecond, func() { fired = append(fired, 2) })
	m.AfterFunc(100*time.Millisecond, func() { fired = append(fired, 1) })

	m.Advance(150 * time.Millisecond)
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("fired = %v, want [1]", fired)
	}
	m.Advance(50 * time.Millisecond)
	if len(fired) != 2 || fired[1] != 2 {
		t.Fatalf("fired = %v, want [1 2]", fired)
	}
	if got := m.PendingTimers(); got != 0 {
		t.Fatalf("pending timers = %d", got)
	}
}

func TestManualGoQueuesContinuation(t *testing.T) {
	m := NewManual()
	worked, done := false, false
	m.Go(func() { worked = true }, func() { done = true })
	if !worked || done {
		t.Fatalf("worked=%v done=%v, want work ran and done queued", worked, done)
	}
	m.RunPending()
	if !done {
		t.Fatal("continuation did not run")
	}
}

func TestLoopDoRunsOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop(time.Millisecond)
	go l.Run(ctx)

	frameRan := make(chan struct{})
	var value int
	err := l.Do(ctx, func() {
		value = 42
		l.NextFrame(func() { close(frameRan) })
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if value != 42 {
		t.Fatalf("value = %d, want 42", value)
	}
	select {
	case <-frameRan:
	case <-time.After(2 * time.Second):
		t.Fatal("next-frame callback never ran")
	}
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop(time.Millisecond)
	go l.Run(ctx)

	l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Fatal("task after panic did not run")
	}
}

func TestLoopDoAfterStopReturnsErrStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	err := l.Do(context.Background(), func() {})
	if err != ErrStopped {
		t.Fatalf("Do() error = %v, want %v", err, ErrStopped)
	}
}
