package frame

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("frame loop stopped")

// Loop is the production Scheduler: one goroutine executes posted tasks in
// order and flushes next-frame callbacks on every tick.
type Loop struct {
	interval time.Duration

	mu     sync.Mutex
	tasks  []func()
	frameQ []func()
	wake   chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.stopOnce.Do(func() { close(l.done) })

	slog.Info("frame loop started", "interval_ms", l.interval.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			slog.Info("frame loop stopped")
			return ctx.Err()
		case <-l.wake:
			l.drainTasks()
		case <-ticker.C:
			l.drainTasks()
			l.flushFrame()
		}
	}
}

func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) NextFrame(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.frameQ = append(l.frameQ, fn)
	l.mu.Unlock()
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

func (l *Loop) Go(work func(), done func()) {
	go func() {
		work()
		l.Post(done)
	}()
}

// Do posts fn and blocks until it has run on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) drainTasks() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()
		runTask(fn)
	}
}

func (l *Loop) flushFrame() {
	l.mu.Lock()
	q := l.frameQ
	l.frameQ = nil
	l.mu.Unlock()
	for _, fn := range q {
		runTask(fn)
	}
	// Frame callbacks may post follow-up tasks; run them before the next tick.
	l.drainTasks()
}

func runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("frame task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
