// Package surface provides the relay surface: an in-process chart surface
// that mirrors chart-library semantics and publishes every mutation so
// browser clients can render it.
package surface

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/relay"
)

// FeedPane is the relay feed carrying pane mutations.
const FeedPane = "pane"

// Publisher receives surface mutation events.
type Publisher interface {
	Publish(evt relay.Event)
}

// Op names a surface mutation.
type Op string

const (
	OpSetSeries      Op = "set_series"
	OpRemoveSeries   Op = "remove_series"
	OpVisibleRange   Op = "visible_range"
	OpCrosshair      Op = "crosshair"
	OpClearCrosshair Op = "clear_crosshair"
	OpMarkers        Op = "markers"
	OpResize         Op = "resize"
	OpRelease        Op = "release"
)

// Mutation is the wire form of one surface call.
type Mutation struct {
	PaneID  string         `json:"pane_id"`
	Op      Op             `json:"op"`
	Series  *chart.Series  `json:"series,omitempty"`
	Name    string         `json:"name,omitempty"`
	Range   *chart.Range   `json:"range,omitempty"`
	Time    *chart.Time    `json:"time,omitempty"`
	Markers []chart.Marker `json:"markers,omitempty"`
	Size    *chart.Size    `json:"size,omitempty"`
}

// Memory is a chart.Surface kept entirely in memory. Like the browser chart
// library, a programmatic SetVisibleRange reports a range change to its
// listeners synchronously.
type Memory struct {
	chart.Hub

	paneID string
	pub    Publisher
	echo   bool

	mu       sync.Mutex
	calls    []Mutation
	released int
}

type Option func(*Memory)

// WithoutRangeEcho disables the synchronous range notification.
func WithoutRangeEcho() Option {
	return func(m *Memory) { m.echo = false }
}

func NewMemory(paneID string, pub Publisher, opts ...Option) *Memory {
	m := &Memory{paneID: paneID, pub: pub, echo: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) PaneID() string { return m.paneID }

func (m *Memory) SetSeries(s chart.Series) error {
	m.record(Mutation{Op: OpSetSeries, Series: &s})
	return nil
}

func (m *Memory) RemoveSeries(name string) error {
	m.record(Mutation{Op: OpRemoveSeries, Name: name})
	return nil
}

func (m *Memory) SetVisibleRange(r chart.Range) error {
	m.record(Mutation{Op: OpVisibleRange, Range: &r})
	if m.echo {
		m.EmitRange(&r)
	}
	return nil
}

func (m *Memory) SetCrosshair(t chart.Time) error {
	m.record(Mutation{Op: OpCrosshair, Time: &t})
	return nil
}

func (m *Memory) ClearCrosshair() error {
	m.record(Mutation{Op: OpClearCrosshair})
	return nil
}

func (m *Memory) SetMarkers(series string, markers []chart.Marker) error {
	m.record(Mutation{Op: OpMarkers, Name: series, Markers: markers})
	return nil
}

func (m *Memory) Resize(width, height int) error {
	m.record(Mutation{Op: OpResize, Size: &chart.Size{Width: width, Height: height}})
	return nil
}

func (m *Memory) Release() error {
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
	m.record(Mutation{Op: OpRelease})
	return nil
}

// Calls returns every recorded mutation in order.
func (m *Memory) Calls() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mutation(nil), m.calls...)
}

// CountOp returns how many times op was applied.
func (m *Memory) CountOp(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Released returns how many times Release was called.
func (m *Memory) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

func (m *Memory) record(mu Mutation) {
	mu.PaneID = m.paneID
	m.mu.Lock()
	m.calls = append(m.calls, mu)
	m.mu.Unlock()

	if m.pub == nil {
		return
	}
	payload, err := json.Marshal(mu)
	if err != nil {
		slog.Warn("surface: encode mutation failed", "pane_id", m.paneID, "op", mu.Op, "error", err)
		return
	}
	m.pub.Publish(relay.Event{Feed: FeedPane, Payload: string(payload)})
}

// Factory builds Memory surfaces that publish to one Publisher.
type Factory struct {
	Publisher Publisher
	Options   []Option
}

func (f Factory) NewSurface(paneID string) (chart.Surface, error) {
	return NewMemory(paneID, f.Publisher, f.Options...), nil
}
