// Package chart models a single chart pane and the rendering surface it
// drives. A Pane keeps the authoritative copy of what its surface shows so
// that state can be inspected and re-applied without asking the renderer.
//
// Pane is not safe for concurrent use; all calls must come from the frame
// loop that owns it.
package chart

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
)

type rangeSub struct {
	id int
	fn func(*Range)
}

type crosshairSub struct {
	id int
	fn func(*Time)
}

type Pane struct {
	id      string
	role    Role
	surface Surface

	order   []string
	series  map[string]Series
	markers map[string][]Marker

	visible   *Range
	crosshair *Time
	size      Size

	destroyed   bool
	unsubscribe func()

	nextSub   int
	rangeSubs []rangeSub
	crossSubs []crosshairSub
}

// NewPane binds a pane to its surface and starts listening for surface
// notifications.
func NewPane(id string, role Role, s Surface) *Pane {
	p := &Pane{
		id:      id,
		role:    role,
		surface: s,
		series:  make(map[string]Series),
		markers: make(map[string][]Marker),
	}
	p.unsubscribe = s.Subscribe(Listener{
		OnRange:     p.handleRange,
		OnCrosshair: p.handleCrosshair,
	})
	return p
}

func (p *Pane) ID() string       { return p.id }
func (p *Pane) Role() Role       { return p.role }
func (p *Pane) Surface() Surface { return p.surface }
func (p *Pane) Destroyed() bool  { return p.destroyed }
func (p *Pane) Size() Size       { return p.size }

// SetSeries replaces the named dataset. Calls on a destroyed pane are logged
// and ignored. An empty series clears the dataset's visual content.
func (p *Pane) SetSeries(s Series) error {
	if p.destroyed {
		slog.Debug("pane: set series on destroyed pane", "pane_id", p.id, "series", s.Name)
		return nil
	}
	if s.Name == "" {
		return apperr.New(apperr.CodeDataShape, fmt.Sprintf("pane %s: series name is required", p.id), nil)
	}
	if err := s.Validate(); err != nil {
		return apperr.New(apperr.CodeDataShape, "pane "+p.id, err)
	}
	s = s.clone()
	if err := p.surface.SetSeries(s); err != nil {
		return fmt.Errorf("pane %s: set series %s: %w", p.id, s.Name, err)
	}
	if _, ok := p.series[s.Name]; !ok {
		p.order = append(p.order, s.Name)
	}
	p.series[s.Name] = s
	return nil
}

func (p *Pane) RemoveSeries(name string) error {
	if p.destroyed {
		return nil
	}
	if _, ok := p.series[name]; !ok {
		return nil
	}
	if err := p.surface.RemoveSeries(name); err != nil {
		return fmt.Errorf("pane %s: remove series %s: %w", p.id, name, err)
	}
	delete(p.series, name)
	delete(p.markers, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// ClearSeries removes every dataset from the pane.
func (p *Pane) ClearSeries() error {
	for _, name := range p.SeriesNames() {
		if err := p.RemoveSeries(name); err != nil {
			return err
		}
	}
	return nil
}

// SeriesNames returns dataset names in the order they were first added.
func (p *Pane) SeriesNames() []string {
	return append([]string(nil), p.order...)
}

func (p *Pane) Series(name string) (Series, bool) {
	s, ok := p.series[name]
	if !ok {
		return Series{}, false
	}
	return s.clone(), true
}

// DataRange is the union of every dataset's span.
func (p *Pane) DataRange() (Range, bool) {
	var out Range
	found := false
	for _, name := range p.order {
		span, ok := p.series[name].Span()
		if !ok {
			continue
		}
		if !found {
			out, found = span, true
			continue
		}
		out = out.Union(span)
	}
	return out, found
}

// SetVisibleRange changes the view only. Ranges outside the data are allowed.
func (p *Pane) SetVisibleRange(r Range) {
	if p.destroyed {
		slog.Debug("pane: set range on destroyed pane", "pane_id", p.id)
		return
	}
	if r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	v := r
	p.visible = &v
	if err := p.surface.SetVisibleRange(r); err != nil {
		slog.Warn("pane: surface rejected visible range", "pane_id", p.id, "range", r.String(), "error", err)
	}
}

func (p *Pane) VisibleRange() (Range, bool) {
	if p.visible == nil {
		return Range{}, false
	}
	return *p.visible, true
}

// FitContent shows the full extent of the pane's data. A pane without data
// keeps its current view.
func (p *Pane) FitContent() {
	if p.destroyed {
		return
	}
	r, ok := p.DataRange()
	if !ok {
		return
	}
	p.SetVisibleRange(r)
}

func (p *Pane) SetCrosshair(t Time) {
	if p.destroyed {
		return
	}
	v := t
	p.crosshair = &v
	if err := p.surface.SetCrosshair(t); err != nil {
		slog.Warn("pane: surface rejected crosshair", "pane_id", p.id, "error", err)
	}
}

func (p *Pane) ClearCrosshair() {
	if p.destroyed {
		return
	}
	p.crosshair = nil
	if err := p.surface.ClearCrosshair(); err != nil {
		slog.Warn("pane: surface rejected crosshair clear", "pane_id", p.id, "error", err)
	}
}

func (p *Pane) Crosshair() (Time, bool) {
	if p.crosshair == nil {
		return 0, false
	}
	return *p.crosshair, true
}

// SetMarkers replaces the marker overlay attached to a series.
func (p *Pane) SetMarkers(series string, markers []Marker) error {
	if p.destroyed {
		return nil
	}
	ms := append([]Marker(nil), markers...)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Time < ms[j].Time })
	if err := p.surface.SetMarkers(series, ms); err != nil {
		return fmt.Errorf("pane %s: set markers: %w", p.id, err)
	}
	if len(ms) == 0 {
		delete(p.markers, series)
		return nil
	}
	p.markers[series] = ms
	return nil
}

func (p *Pane) Markers(series string) []Marker {
	return append([]Marker(nil), p.markers[series]...)
}

// Resize forwards new dimensions to the surface. Repeating the current size
// is a no-op.
func (p *Pane) Resize(width, height int) {
	if p.destroyed {
		return
	}
	next := Size{Width: width, Height: height}
	if next == p.size {
		return
	}
	p.size = next
	if err := p.surface.Resize(width, height); err != nil {
		slog.Warn("pane: surface rejected resize", "pane_id", p.id, "width", width, "height", height, "error", err)
	}
}

// Destroy releases the surface. Later calls do nothing.
func (p *Pane) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.rangeSubs = nil
	p.crossSubs = nil
	if err := p.surface.Release(); err != nil {
		slog.Warn("pane: surface release failed", "pane_id", p.id, "error", err)
	}
	slog.Debug("pane destroyed", "pane_id", p.id)
}

// OnVisibleRangeChange registers fn for range notifications coming from the
// surface, whether user-driven or echoed from SetVisibleRange.
func (p *Pane) OnVisibleRangeChange(fn func(*Range)) (unsubscribe func()) {
	if p.destroyed {
		return func() {}
	}
	p.nextSub++
	id := p.nextSub
	p.rangeSubs = append(p.rangeSubs, rangeSub{id: id, fn: fn})
	return func() {
		for i, s := range p.rangeSubs {
			if s.id == id {
				p.rangeSubs = append(p.rangeSubs[:i:i], p.rangeSubs[i+1:]...)
				return
			}
		}
	}
}

// OnCrosshairMove registers fn for crosshair notifications coming from the
// surface.
func (p *Pane) OnCrosshairMove(fn func(*Time)) (unsubscribe func()) {
	if p.destroyed {
		return func() {}
	}
	p.nextSub++
	id := p.nextSub
	p.crossSubs = append(p.crossSubs, crosshairSub{id: id, fn: fn})
	return func() {
		for i, s := range p.crossSubs {
			if s.id == id {
				p.crossSubs = append(p.crossSubs[:i:i], p.crossSubs[i+1:]...)
				return
			}
		}
	}
}

func (p *Pane) handleRange(r *Range) {
	if p.destroyed {
		return
	}
	if r != nil {
		v := *r
		p.visible = &v
	}
	for _, s := range append([]rangeSub(nil), p.rangeSubs...) {
		s.fn(r)
	}
}

func (p *Pane) handleCrosshair(t *Time) {
	if p.destroyed {
		return
	}
	if t == nil {
		p.crosshair = nil
	} else {
		v := *t
		p.crosshair = &v
	}
	for _, s := range append([]crosshairSub(nil), p.crossSubs...) {
		s.fn(t)
	}
}

// RangeSubscribers reports how many range listeners are registered.
func (p *Pane) RangeSubscribers() int { return len(p.rangeSubs) }

// CrosshairSubscribers reports how many crosshair listeners are registered.
func (p *Pane) CrosshairSubscribers() int { return len(p.crossSubs) }

// SeriesInfo summarizes one dataset.
type SeriesInfo struct {
	Name   string     `json:"name"`
	Kind   SeriesKind `json:"kind"`
	Title  string     `json:"title,omitempty"`
	Color  string     `json:"color,omitempty"`
	Points int        `json:"points"`
}

// PaneInfo is a read-only view of pane state.
type PaneInfo struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Series       []SeriesInfo `json:"series"`
	VisibleRange *Range       `json:"visible_range,omitempty"`
	Crosshair    *Time        `json:"crosshair,omitempty"`
	Size         Size         `json:"size"`
	Markers      int          `json:"markers"`
	Destroyed    bool         `json:"destroyed"`
}

func (p *Pane) Info() PaneInfo {
	info := PaneInfo{
		ID:        p.id,
		Role:      p.role,
		Series:    make([]SeriesInfo, 0, len(p.order)),
		Size:      p.size,
		Destroyed: p.destroyed,
	}
	for _, name := range p.order {
		s := p.series[name]
		info.Series = append(info.Series, SeriesInfo{Name: s.Name, Kind: s.Kind, Title: s.Title, Color: s.Color, Points: s.Len()})
	}
	if r, ok := p.VisibleRange(); ok {
		info.VisibleRange = &r
	}
	if t, ok := p.Crosshair(); ok {
		info.Crosshair = &t
	}
	for _, ms := range p.markers {
		info.Markers += len(ms)
	}
	return info
}
