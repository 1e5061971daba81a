// Package frame provides the cooperative, single-threaded execution model the
// dashboard engine runs on. Every engine mutation happens inside a task
// executed by a Scheduler; network work runs elsewhere and posts its
// continuation back as a new task.
package frame

import "time"

// DefaultInterval approximates one display refresh at 60 Hz.
const DefaultInterval = 16 * time.Millisecond

// Scheduler is the capability engine components use to defer work.
type Scheduler interface {
	// Post queues fn as a discrete task.
	Post(fn func())
	// NextFrame runs fn after the current rendering frame completes.
	NextFrame(fn func())
	// AfterFunc runs fn as a task once d has elapsed.
	AfterFunc(d time.Duration, fn func())
	// Go runs work off the engine thread, then posts done as a task.
	Go(work func(), done func())
}
