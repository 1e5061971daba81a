// Package syncgroup keeps the time axis and crosshair of a set of panes in
// step. A range change on one member is applied to every sibling exactly once;
// the echoes those siblings emit are dropped until the next frame.
package syncgroup

import (
	"log/slog"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
)

// State is the group's propagation state.
type State int

const (
	// Idle accepts the next interaction event from any ready member.
	Idle State = iota
	// Propagating drops member events until the next frame.
	Propagating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Propagating:
		return "propagating"
	}
	return "unknown"
}

type member struct {
	pane    *chart.Pane
	ready   bool
	removed bool
	unsubs  []func()
}

func (m *member) live() bool {
	return !m.removed && !m.pane.Destroyed()
}

func (m *member) unwire() {
	for _, fn := range m.unsubs {
		fn()
	}
	m.unsubs = nil
}

// Stats are diagnostic counters.
type Stats struct {
	Propagations  int `json:"propagations"`
	DroppedEchoes int `json:"dropped_echoes"`
	CrosshairSets int `json:"crosshair_sets"`
}

// Group is not safe for concurrent use; it runs on the frame loop that owns
// its panes.
type Group struct {
	name    string
	sched   frame.Scheduler
	members []*member
	state   State
	wired   bool
	stats   Stats
}

// New creates an unwired group. Members start ready.
func New(name string, sched frame.Scheduler, panes ...*chart.Pane) *Group {
	g := &Group{name: name, sched: sched}
	for _, p := range panes {
		g.Add(p)
	}
	return g
}

// Name identifies the group in logs.
func (g *Group) Name() string { return g.name }

// State reports whether a propagation is in progress.
func (g *Group) State() State { return g.state }

// Wired reports whether member notifications are being intercepted.
func (g *Group) Wired() bool { return g.wired }

func (g *Group) Stats() Stats { return g.stats }

// Add inserts a pane. When the group is already wired, the pane joins the
// notification loop immediately.
func (g *Group) Add(p *chart.Pane) {
	if p == nil || g.find(p.ID()) != nil {
		return
	}
	m := &member{pane: p, ready: true}
	g.members = append(g.members, m)
	if g.wired {
		g.wireMember(m)
	}
}

// Remove detaches a pane. A propagation already in progress skips it.
func (g *Group) Remove(paneID string) bool {
	for i, m := range g.members {
		if m.pane.ID() != paneID {
			continue
		}
		m.unwire()
		m.removed = true
		g.members = append(g.members[:i:i], g.members[i+1:]...)
		return true
	}
	return false
}

// SetReady gates a member's participation in both directions.
func (g *Group) SetReady(paneID string, ready bool) {
	if m := g.find(paneID); m != nil {
		m.ready = ready
	}
}

func (g *Group) Ready(paneID string) bool {
	m := g.find(paneID)
	return m != nil && m.ready
}

// Panes returns the members in insertion order.
func (g *Group) Panes() []*chart.Pane {
	out := make([]*chart.Pane, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, m.pane)
	}
	return out
}

// Wire (re)registers listeners on every member. Earlier registrations are
// removed first, so repeated calls never duplicate propagation.
func (g *Group) Wire() {
	for _, m := range g.members {
		g.wireMember(m)
	}
	g.wired = true
}

// Unwire removes every listener. The group can be wired again later.
func (g *Group) Unwire() {
	for _, m := range g.members {
		m.unwire()
	}
	g.wired = false
}

func (g *Group) wireMember(m *member) {
	m.unwire()
	m.unsubs = append(m.unsubs,
		m.pane.OnVisibleRangeChange(func(r *chart.Range) { g.onRange(m, r) }),
		m.pane.OnCrosshairMove(func(t *chart.Time) { g.onCrosshair(m, t) }),
	)
}

func (g *Group) find(paneID string) *member {
	for _, m := range g.members {
		if m.pane.ID() == paneID {
			return m
		}
	}
	return nil
}

func (g *Group) liveCount() int {
	n := 0
	for _, m := range g.members {
		if m.live() {
			n++
		}
	}
	return n
}

func (g *Group) onRange(origin *member, r *chart.Range) {
	if r == nil || !origin.live() || !origin.ready {
		return
	}
	if g.liveCount() < 2 {
		return
	}
	if g.state == Propagating {
		g.stats.DroppedEchoes++
		return
	}

	g.state = Propagating
	g.stats.Propagations++
	target := *r
	for _, m := range append([]*member(nil), g.members...) {
		if m == origin || !m.live() || !m.ready {
			continue
		}
		m.pane.SetVisibleRange(target)
	}
	g.sched.NextFrame(g.settle)
	slog.Debug("sync: range propagated", "group", g.name, "origin", origin.pane.ID(), "range", target.String())
}

func (g *Group) settle() {
	g.state = Idle
}

func (g *Group) onCrosshair(origin *member, t *chart.Time) {
	if !origin.live() || !origin.ready || g.liveCount() < 2 {
		return
	}
	for _, m := range append([]*member(nil), g.members...) {
		if m == origin || !m.live() || !m.ready {
			continue
		}
		if t == nil {
			m.pane.ClearCrosshair()
		} else {
			m.pane.SetCrosshair(*t)
		}
		g.stats.CrosshairSets++
	}
}
