package layout

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

// DefaultSettleDelay is the wait between reconciling windows and measuring
// the new grid.
const DefaultSettleDelay = 200 * time.Millisecond

// Windows is the part of the window manager the controller drives.
type Windows interface {
	Count() int
	IDs() []int
	CreateWindow(tf workspace.Timeframe) (int, error)
	DestroyWindow(id int) bool
	ResizeAll(measure workspace.MeasureFunc)
}

type Options struct {
	SettleDelay      time.Duration
	FrameInterval    time.Duration
	Geometry         Geometry
	DefaultTimeframe workspace.Timeframe
}

// Result describes what ApplyLayout changed.
type Result struct {
	Layout   Layout `json:"layout"`
	Previous Layout `json:"previous"`
	Tag      string `json:"tag"`
	// RemovedTag is the previous layout's tag when the layout changed.
	RemovedTag string `json:"removed_tag,omitempty"`
	Created    []int  `json:"created"`
	Destroyed  []int  `json:"destroyed"`
}

// Controller must be used from the frame loop.
type Controller struct {
	sched   frame.Scheduler
	windows Windows
	opts    Options

	current   Layout
	previous  Layout
	tag       string
	relayouts int
}

func New(sched frame.Scheduler, windows Windows, opts Options) (*Controller, error) {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = frame.DefaultInterval
	}
	if opts.SettleDelay <= opts.FrameInterval {
		return nil, fmt.Errorf("layout settle delay %s must exceed one frame (%s)", opts.SettleDelay, opts.FrameInterval)
	}
	if opts.DefaultTimeframe == "" {
		opts.DefaultTimeframe = workspace.DefaultTimeframe
	}
	return &Controller{sched: sched, windows: windows, opts: opts}, nil
}

func (c *Controller) Current() Layout    { return c.current }
func (c *Controller) Previous() Layout   { return c.previous }
func (c *Controller) Tag() string        { return c.tag }
func (c *Controller) Geometry() Geometry { return c.opts.Geometry }
func (c *Controller) Relayouts() int     { return c.relayouts }

// ApplyLayout grows or shrinks the window set to the layout's count, then
// schedules a relayout once the grid has settled. Shrinking removes the most
// recently registered windows first.
func (c *Controller) ApplyLayout(name string) (Result, error) {
	l, ok := Parse(name)
	if !ok {
		slog.Warn("unknown layout, using single", "layout", name)
	}
	target := l.MaxWindows()
	res := Result{Layout: l}

	for c.windows.Count() < target {
		id, err := c.windows.CreateWindow(c.opts.DefaultTimeframe)
		if err != nil {
			return res, fmt.Errorf("apply layout %s: %w", l, err)
		}
		res.Created = append(res.Created, id)
	}
	for ids := c.windows.IDs(); len(ids) > target; ids = ids[:len(ids)-1] {
		last := ids[len(ids)-1]
		c.windows.DestroyWindow(last)
		res.Destroyed = append(res.Destroyed, last)
	}

	if c.current != "" && c.current != l {
		res.RemovedTag = c.current.Tag()
	}
	c.previous, c.current = c.current, l
	c.tag = l.Tag()
	res.Previous, res.Tag = c.previous, c.tag

	c.sched.AfterFunc(c.opts.SettleDelay, c.Relayout)
	slog.Info("layout applied", "layout", l, "windows", c.windows.Count(),
		"created", len(res.Created), "destroyed", len(res.Destroyed))
	return res, nil
}

// Relayout resizes and refits every pane from the current geometry.
func (c *Controller) Relayout() {
	l := c.current
	if l == "" {
		l = Single
	}
	c.windows.ResizeAll(func(_ int, _ *workspace.Window, role chart.Role) chart.Size {
		return c.opts.Geometry.PaneSize(l, role)
	})
	c.relayouts++
	slog.Debug("relayout complete", "layout", l, "windows", c.windows.Count())
}

// SetViewport records a new viewport size and resizes immediately, as the
// platform resize handler does.
func (c *Controller) SetViewport(v Viewport) {
	c.opts.Geometry.Viewport = v
	c.Relayout()
}
