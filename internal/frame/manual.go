package frame

import (
	"sort"
	"sync"
	"time"
)

type manualTimer struct {
	at  time.Duration
	seq int
	fn  func()
}

// Manual is a deterministic Scheduler driven explicitly by the caller. Go runs
// work inline, so continuations are queued as soon as the call returns.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	tasks  []func()
	frameQ []func()
	timers []manualTimer
	frames int
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
}

func (m *Manual) NextFrame(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.frameQ = append(m.frameQ, fn)
	m.mu.Unlock()
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	m.seq++
	m.timers = append(m.timers, manualTimer{at: m.now + d, seq: m.seq, fn: fn})
	m.mu.Unlock()
}

func (m *Manual) Go(work func(), done func()) {
	work()
	m.Post(done)
}

// RunPending runs queued tasks, including tasks they post, and returns how
// many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Frame completes the current frame: pending tasks run, then every callback
// registered before the frame boundary.
func (m *Manual) Frame() {
	m.RunPending()
	m.mu.Lock()
	q := m.frameQ
	m.frameQ = nil
	m.frames++
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
	m.RunPending()
}

// Advance moves the virtual clock forward and fires due timers in order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	var due, rest []manualTimer
	for _, t := range m.timers {
		if t.at <= now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.timers = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		m.Post(t.fn)
	}
	m.RunPending()
}

// Settle runs tasks and frames until nothing is queued. Timers are not fired.
func (m *Manual) Settle() {
	for i := 0; i < 64; i++ {
		m.RunPending()
		m.mu.Lock()
		idle := len(m.frameQ) == 0 && len(m.tasks) == 0
		m.mu.Unlock()
		if idle {
			return
		}
		m.Frame()
	}
}

func (m *Manual) PendingFrameCallbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frameQ)
}

func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}
