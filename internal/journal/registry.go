package journal

import (
	"errors"
	"sync"
)

// Registry hands out one Writer per feed.
type Registry struct {
	baseDir    string
	bufferSize int
	maxSizeMB  int

	mu      sync.Mutex
	writers map[string]*Writer
}

func NewRegistry(baseDir string, bufferSize, maxSizeMB int) *Registry {
	return &Registry{
		baseDir:    baseDir,
		bufferSize: bufferSize,
		maxSizeMB:  maxSizeMB,
		writers:    make(map[string]*Writer),
	}
}

// Writer returns the writer for feed, creating it on first use.
func (r *Registry) Writer(feed string) *Writer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.writers[feed]; ok {
		return w
	}
	w := NewWriter(r.baseDir, feed, r.bufferSize, r.maxSizeMB)
	r.writers[feed] = w
	return w
}

func (r *Registry) Close() error {
	r.mu.Lock()
	writers := r.writers
	r.writers = make(map[string]*Writer)
	r.mu.Unlock()

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
