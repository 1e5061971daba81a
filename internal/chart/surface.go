package chart

import (
	"sort"
	"sync"
)

// Surface is the rendering capability behind a Pane. Implementations draw
// nothing themselves in tests; in production they forward to a browser-hosted
// chart. A programmatic SetVisibleRange may be reported back through the
// subscribed Listener, exactly as user interaction is.
type Surface interface {
	SetSeries(s Series) error
	RemoveSeries(name string) error
	SetVisibleRange(r Range) error
	SetCrosshair(t Time) error
	ClearCrosshair() error
	SetMarkers(series string, markers []Marker) error
	Resize(width, height int) error
	Release() error
	Subscribe(l Listener) (unsubscribe func())
}

// Listener receives surface notifications. A nil range means the surface has
// no valid range yet; a nil time means the cursor left the surface.
type Listener struct {
	OnRange     func(r *Range)
	OnCrosshair func(t *Time)
}

// Hub is a listener registry surfaces embed to satisfy Subscribe and to
// dispatch notifications. Dispatch order follows subscription order.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func (h *Hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	h.nextID++
	id := h.nextID
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) snapshot() []Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.listeners[id])
	}
	return out
}

// EmitRange notifies listeners of a visible-range change.
func (h *Hub) EmitRange(r *Range) {
	for _, l := range h.snapshot() {
		if l.OnRange != nil {
			l.OnRange(r)
		}
	}
}

// EmitCrosshair notifies listeners of a crosshair move.
func (h *Hub) EmitCrosshair(t *Time) {
	for _, l := range h.snapshot() {
		if l.OnCrosshair != nil {
			l.OnCrosshair(t)
		}
	}
}

func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Emitter is implemented by surfaces that accept injected user interaction.
type Emitter interface {
	EmitRange(r *Range)
	EmitCrosshair(t *Time)
}
