// Package controller runs dashboard operations on the frame loop on behalf of
// the HTTP and WebSocket handlers.
package controller

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/layout"
	"github.com/dgnsrekt/chartdeck/internal/notify"
	"github.com/dgnsrekt/chartdeck/internal/performance"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

// Runner executes fn on the frame loop and waits for it. *frame.Loop
// implements it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Backend is everything the engine fetches from the backtest backend.
type Backend interface {
	workspace.Backend
	performance.Backend
}

type Options struct {
	FetchTimeout time.Duration
	Layout       layout.Options
	Panel        performance.Options
	Notify       notify.Options
}

// Session owns one dashboard: its windows, layout, project panel and
// notifications. Engine state is only touched inside run.Do.
type Session struct {
	run     Runner
	windows *workspace.Manager
	layout  *layout.Controller
	panel   *performance.Group
	notes   *notify.Center
}

func New(run Runner, sched frame.Scheduler, be Backend, surfaces workspace.SurfaceFactory, opts Options) (*Session, error) {
	notes := notify.NewCenter(sched, opts.Notify)
	windows := workspace.NewManager(sched, be, notes, surfaces, workspace.Options{FetchTimeout: opts.FetchTimeout})
	lc, err := layout.New(sched, windows, opts.Layout)
	if err != nil {
		return nil, err
	}
	if opts.Panel.FetchTimeout == 0 {
		opts.Panel.FetchTimeout = opts.FetchTimeout
	}
	panel, err := performance.New(sched, be, notes, surfaces, opts.Panel)
	if err != nil {
		return nil, err
	}
	return &Session{run: run, windows: windows, layout: lc, panel: panel, notes: notes}, nil
}

func (s *Session) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(fieldName + " is required")
	}
	return nil
}

func windowNotFound(id int) error {
	return apperr.New(apperr.CodeWindowNotFound, "window "+strconv.Itoa(id)+" not found", nil)
}

// do runs fn on the loop and returns fn's error, or the loop's.
func (s *Session) do(ctx context.Context, fn func() error) error {
	var inner error
	if err := s.run.Do(ctx, func() { inner = fn() }); err != nil {
		return err
	}
	return inner
}

func (s *Session) Windows(ctx context.Context) ([]workspace.WindowInfo, error) {
	var out []workspace.WindowInfo
	err := s.do(ctx, func() error {
		out = s.windows.Windows()
		return nil
	})
	return out, err
}

func (s *Session) windowInfo(id int) (workspace.WindowInfo, error) {
	w, ok := s.windows.Window(id)
	if !ok {
		return workspace.WindowInfo{}, windowNotFound(id)
	}
	return w.Info(), nil
}

func (s *Session) Window(ctx context.Context, id int) (workspace.WindowInfo, error) {
	var out workspace.WindowInfo
	err := s.do(ctx, func() (err error) {
		out, err = s.windowInfo(id)
		return err
	})
	return out, err
}

func (s *Session) CreateWindow(ctx context.Context, timeframe string) (workspace.WindowInfo, error) {
	tf, err := workspace.ParseTimeframe(timeframe)
	if err != nil {
		return workspace.WindowInfo{}, err
	}
	var out workspace.WindowInfo
	err = s.do(ctx, func() error {
		id, err := s.windows.CreateWindow(tf)
		if err != nil {
			return err
		}
		out, err = s.windowInfo(id)
		return err
	})
	return out, err
}

// DestroyWindow reports whether a window was removed. Unknown ids are not an
// error.
func (s *Session) DestroyWindow(ctx context.Context, id int) (bool, error) {
	var removed bool
	err := s.do(ctx, func() error {
		removed = s.windows.DestroyWindow(id)
		return nil
	})
	return removed, err
}

// windowOp runs a window operation and returns the window afterwards. Fetches
// it starts complete later.
func (s *Session) windowOp(ctx context.Context, id int, op func() error) (workspace.WindowInfo, error) {
	var out workspace.WindowInfo
	err := s.do(ctx, func() error {
		if err := op(); err != nil {
			return err
		}
		var err error
		out, err = s.windowInfo(id)
		return err
	})
	return out, err
}

func (s *Session) LoadData(ctx context.Context, id int, symbol, start, end string) (workspace.WindowInfo, error) {
	return s.windowOp(ctx, id, func() error { return s.windows.LoadData(id, symbol, start, end) })
}

func (s *Session) ChangeAssetType(ctx context.Context, id int, assetType string) (workspace.WindowInfo, error) {
	return s.windowOp(ctx, id, func() error { return s.windows.ChangeAssetType(id, assetType) })
}

func (s *Session) ChangeTimeframe(ctx context.Context, id int, timeframe string) (workspace.WindowInfo, error) {
	return s.windowOp(ctx, id, func() error { return s.windows.ChangeTimeframe(id, timeframe) })
}

func (s *Session) SetIndicator(ctx context.Context, id int, kind string) (workspace.WindowInfo, error) {
	return s.windowOp(ctx, id, func() error { return s.windows.SetIndicator(id, kind) })
}

func (s *Session) ReloadAll(ctx context.Context, start, end string) (int, error) {
	var n int
	err := s.do(ctx, func() (err error) {
		n, err = s.windows.ReloadAll(start, end)
		return err
	})
	return n, err
}

type LayoutInfo struct {
	Layout    layout.Layout   `json:"layout"`
	Previous  layout.Layout   `json:"previous,omitempty"`
	Tag       string          `json:"tag"`
	Geometry  layout.Geometry `json:"geometry"`
	Windows   []int           `json:"windows"`
	Relayouts int             `json:"relayouts"`
}

func (s *Session) layoutInfo() LayoutInfo {
	return LayoutInfo{
		Layout:    s.layout.Current(),
		Previous:  s.layout.Previous(),
		Tag:       s.layout.Tag(),
		Geometry:  s.layout.Geometry(),
		Windows:   s.windows.IDs(),
		Relayouts: s.layout.Relayouts(),
	}
}

func (s *Session) Layout(ctx context.Context) (LayoutInfo, error) {
	var out LayoutInfo
	err := s.do(ctx, func() error {
		out = s.layoutInfo()
		return nil
	})
	return out, err
}

func (s *Session) ApplyLayout(ctx context.Context, name string) (layout.Result, error) {
	var res layout.Result
	err := s.do(ctx, func() (err error) {
		res, err = s.layout.ApplyLayout(name)
		return err
	})
	return res, err
}

func (s *Session) SetViewport(ctx context.Context, width, height int) (LayoutInfo, error) {
	if width <= 0 || height <= 0 {
		return LayoutInfo{}, apperr.Validation("viewport width and height must be positive")
	}
	var out LayoutInfo
	err := s.do(ctx, func() error {
		s.layout.SetViewport(layout.Viewport{Width: width, Height: height})
		out = s.layoutInfo()
		return nil
	})
	return out, err
}

func (s *Session) findPane(id string) (*chart.Pane, error) {
	if p, ok := s.windows.Pane(id); ok {
		return p, nil
	}
	if p, ok := s.panel.Pane(id); ok {
		return p, nil
	}
	return nil, apperr.New(apperr.CodePaneNotFound, "pane "+id+" not found", nil)
}

func (s *Session) Pane(ctx context.Context, id string) (chart.PaneInfo, error) {
	if err := s.requireNonEmpty(id, "pane_id"); err != nil {
		return chart.PaneInfo{}, err
	}
	var out chart.PaneInfo
	err := s.do(ctx, func() error {
		p, err := s.findPane(id)
		if err != nil {
			return err
		}
		out = p.Info()
		return nil
	})
	return out, err
}

func (s *Session) emitter(id string) (chart.Emitter, error) {
	p, err := s.findPane(id)
	if err != nil {
		return nil, err
	}
	em, ok := p.Surface().(chart.Emitter)
	if !ok {
		return nil, apperr.Validation("pane " + id + " does not accept injected interaction")
	}
	return em, nil
}

// InjectRange reports a user pan/zoom on a pane, as if it came from the
// surface. A nil range means the surface has no valid range.
func (s *Session) InjectRange(ctx context.Context, paneID string, r *chart.Range) error {
	if err := s.requireNonEmpty(paneID, "pane_id"); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		em, err := s.emitter(paneID)
		if err != nil {
			return err
		}
		em.EmitRange(r)
		return nil
	})
}

// InjectCrosshair reports a cursor move on a pane. A nil time means the
// cursor left it.
func (s *Session) InjectCrosshair(ctx context.Context, paneID string, t *chart.Time) error {
	if err := s.requireNonEmpty(paneID, "pane_id"); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		em, err := s.emitter(paneID)
		if err != nil {
			return err
		}
		em.EmitCrosshair(t)
		return nil
	})
}

func (s *Session) Panel(ctx context.Context) (performance.Info, error) {
	var out performance.Info
	err := s.do(ctx, func() error {
		out = s.panel.Summary()
		return nil
	})
	return out, err
}

func (s *Session) OpenProject(ctx context.Context, name string) (performance.Info, error) {
	var out performance.Info
	err := s.do(ctx, func() error {
		if err := s.panel.Open(name); err != nil {
			return err
		}
		out = s.panel.Summary()
		return nil
	})
	return out, err
}

func (s *Session) SelectTradedSymbol(ctx context.Context, symbol string) (performance.Info, error) {
	var out performance.Info
	err := s.do(ctx, func() error {
		if err := s.panel.SelectTradedSymbol(symbol); err != nil {
			return err
		}
		out = s.panel.Summary()
		return nil
	})
	return out, err
}

func (s *Session) SetPanelVisible(ctx context.Context, visible bool) (performance.Info, error) {
	var out performance.Info
	err := s.do(ctx, func() error {
		s.panel.SetVisible(visible)
		out = s.panel.Summary()
		return nil
	})
	return out, err
}

// wait blocks until a completion callback fires or ctx ends.
func wait[T any](ctx context.Context, ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type projectsResult struct {
	projects []string
	err      error
}

// ListProjects refreshes the project list from the backend and returns it.
func (s *Session) ListProjects(ctx context.Context) ([]string, error) {
	ch := make(chan projectsResult, 1)
	if err := s.run.Do(ctx, func() {
		s.panel.ListProjects(func(p []string, err error) { ch <- projectsResult{p, err} })
	}); err != nil {
		return nil, err
	}
	r, err := wait(ctx, ch)
	if err != nil {
		return nil, err
	}
	return r.projects, r.err
}

// RunProject waits for the backend run to finish.
func (s *Session) RunProject(ctx context.Context, name, start, end string) error {
	ch := make(chan error, 1)
	err := s.do(ctx, func() error {
		return s.panel.RunProject(name, start, end, func(err error) { ch <- err })
	})
	if err != nil {
		return err
	}
	runErr, err := wait(ctx, ch)
	if err != nil {
		return err
	}
	return runErr
}

func (s *Session) ReloadProjects(ctx context.Context) error {
	ch := make(chan error, 1)
	if err := s.run.Do(ctx, func() {
		s.panel.ReloadProjects(func(err error) { ch <- err })
	}); err != nil {
		return err
	}
	reloadErr, err := wait(ctx, ch)
	if err != nil {
		return err
	}
	return reloadErr
}

func (s *Session) Notifications(ctx context.Context) ([]notify.Notification, error) {
	var out []notify.Notification
	err := s.do(ctx, func() error {
		out = s.notes.Active()
		return nil
	})
	return out, err
}

func (s *Session) DismissNotification(ctx context.Context, id string) (bool, error) {
	if err := s.requireNonEmpty(id, "notification id"); err != nil {
		return false, err
	}
	var ok bool
	err := s.do(ctx, func() error {
		ok = s.notes.Dismiss(id)
		return nil
	})
	return ok, err
}
