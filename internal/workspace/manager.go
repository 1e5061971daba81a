// Package workspace owns the registry of chart windows: their creation and
// destruction, data loading and indicator selection.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/syncgroup"
)

// Backend is the subset of the REST client windows need.
type Backend interface {
	Symbols(ctx context.Context, assetType string) ([]string, error)
	Bars(ctx context.Context, assetType, symbol, start, end string) ([]chart.Bar, error)
	Indicator(ctx context.Context, assetType, symbol, start, end, name string) (json.RawMessage, error)
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Error(msg string)
	Info(msg string)
}

// SurfaceFactory creates the rendering surface for a new pane.
type SurfaceFactory interface {
	NewSurface(paneID string) (chart.Surface, error)
}

// MeasureFunc returns the pixel size of a pane. slot is the window's position
// in registration order.
type MeasureFunc func(slot int, w *Window, role chart.Role) chart.Size

type Options struct {
	FetchTimeout time.Duration
}

// Manager is not safe for concurrent use; every method must run on the frame
// loop passed to NewManager.
type Manager struct {
	sched    frame.Scheduler
	backend  Backend
	notifier Notifier
	surfaces SurfaceFactory
	timeout  time.Duration

	nextID  int
	windows map[int]*Window
	order   []int
}

func NewManager(sched frame.Scheduler, be Backend, notifier Notifier, surfaces SurfaceFactory, opts Options) *Manager {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Manager{
		sched:    sched,
		backend:  be,
		notifier: notifier,
		surfaces: surfaces,
		timeout:  opts.FetchTimeout,
		windows:  make(map[int]*Window),
	}
}

// CreateWindow registers a new window and starts loading its symbol list in
// the background. It returns without waiting for the list.
func (m *Manager) CreateWindow(tf Timeframe) (int, error) {
	if tf == "" {
		tf = DefaultTimeframe
	}
	id := m.nextID + 1

	roles := []chart.Role{chart.RolePrice, chart.RoleVolume, chart.RoleIndicator}
	panes := make([]*chart.Pane, 0, len(roles))
	for _, role := range roles {
		pid := paneID(id, role)
		s, err := m.surfaces.NewSurface(pid)
		if err != nil {
			for _, p := range panes {
				p.Destroy()
			}
			return 0, fmt.Errorf("create window %d: surface %s: %w", id, pid, err)
		}
		panes = append(panes, chart.NewPane(pid, role, s))
	}
	m.nextID = id

	w := &Window{
		id:        id,
		assetType: AssetStocks,
		timeframe: tf,
		price:     panes[0],
		volume:    panes[1],
		indicPane: panes[2],
		group:     syncgroup.New(fmt.Sprintf("window-%d", id), m.sched, panes...),
		status:    "empty",
	}
	m.windows[id] = w
	m.order = append(m.order, id)
	slog.Info("window created", "window_id", id, "timeframe", tf)

	m.loadSymbols(w)
	return id, nil
}

// DestroyWindow releases a window's panes. Unknown ids are logged and
// ignored; the return value reports whether a window was removed.
func (m *Manager) DestroyWindow(id int) bool {
	w, ok := m.windows[id]
	if !ok {
		slog.Warn("destroy window: unknown id", "window_id", id)
		return false
	}
	w.group.Unwire()
	for _, p := range w.Panes() {
		p.Destroy()
	}
	delete(m.windows, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	slog.Info("window destroyed", "window_id", id)
	return true
}

func (m *Manager) Count() int { return len(m.order) }

// IDs returns live window ids in registration order.
func (m *Manager) IDs() []int { return append([]int(nil), m.order...) }

func (m *Manager) Window(id int) (*Window, bool) {
	w, ok := m.windows[id]
	return w, ok
}

func (m *Manager) Windows() []WindowInfo {
	out := make([]WindowInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.windows[id].Info())
	}
	return out
}

// Pane finds a live pane by id across all windows.
func (m *Manager) Pane(id string) (*chart.Pane, bool) {
	for _, wid := range m.order {
		for _, p := range m.windows[wid].Panes() {
			if p.ID() == id {
				return p, true
			}
		}
	}
	return nil, false
}

func (m *Manager) lookup(id int) (*Window, error) {
	w, ok := m.windows[id]
	if !ok {
		slog.Warn("window not found", "window_id", id)
		return nil, apperr.New(apperr.CodeWindowNotFound, fmt.Sprintf("window %d not found", id), nil)
	}
	return w, nil
}

// current reports whether w is still registered under its id.
func (m *Manager) current(w *Window) bool {
	cur, ok := m.windows[w.id]
	return ok && cur == w
}

func (m *Manager) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// reject reports a validation failure to the user.
func (m *Manager) reject(err error) error {
	m.notifier.Error(err.Error())
	return err
}

func (m *Manager) fail(w *Window, op string, err error) {
	slog.Error("window "+op+" failed", "window_id", w.id, "error", err)
	w.status = op + " failed"
	if apperr.UserVisible(err) {
		m.notifier.Error(fmt.Sprintf("window %d: %s failed: %v", w.id, op, err))
	}
}

func (m *Manager) loadSymbols(w *Window) {
	w.symbolsGen++
	gen := w.symbolsGen
	assetType := w.assetType

	var symbols []string
	var err error
	m.sched.Go(func() {
		ctx, cancel := m.fetchContext()
		defer cancel()
		symbols, err = m.backend.Symbols(ctx, string(assetType))
	}, func() {
		if !m.current(w) || w.symbolsGen != gen {
			slog.Debug("dropping stale symbol list", "window_id", w.id)
			return
		}
		if err != nil {
			m.fail(w, "load symbols", err)
			return
		}
		w.symbols = symbols
		if !contains(symbols, w.symbol) {
			w.symbol = ""
			if len(symbols) > 0 {
				w.symbol = symbols[0]
			}
		}
		slog.Debug("symbol list loaded", "window_id", w.id, "asset_type", assetType, "count", len(symbols))
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func validateSelection(symbol, start, end string) (Selection, error) {
	sel := Selection{
		Symbol: strings.TrimSpace(symbol),
		Start:  strings.TrimSpace(start),
		End:    strings.TrimSpace(end),
	}
	switch {
	case sel.Symbol == "":
		return sel, apperr.Validation("symbol is required")
	case sel.Start == "":
		return sel, apperr.Validation("start_date is required")
	case sel.End == "":
		return sel, apperr.Validation("end_date is required")
	}
	s, err := time.Parse(backend.DateLayout, sel.Start)
	if err != nil {
		return sel, apperr.Validation("start_date must be YYYY-MM-DD")
	}
	e, err := time.Parse(backend.DateLayout, sel.End)
	if err != nil {
		return sel, apperr.Validation("end_date must be YYYY-MM-DD")
	}
	if e.Before(s) {
		return sel, apperr.Validation("end_date is before start_date")
	}
	return sel, nil
}

func indicatorQuery(ind Indicator) string {
	switch ind {
	case IndicatorNone:
		return backend.IndicatorAllMA
	case IndicatorRSI:
		return backend.IndicatorRSI
	case IndicatorMACD:
		return backend.IndicatorMACD
	}
	return backend.IndicatorAllMA
}

// LoadData fetches bars and indicator data for a window. Validation errors
// are returned and shown to the user before any request is made; fetch
// results are applied later on the frame loop.
func (m *Manager) LoadData(id int, symbol, start, end string) error {
	sel, err := validateSelection(symbol, start, end)
	if err != nil {
		return m.reject(err)
	}
	w, err := m.lookup(id)
	if err != nil {
		return err
	}

	w.symbol = sel.Symbol
	w.selection = &sel
	w.status = "loading " + sel.Symbol
	w.dataGen++
	w.indGen++
	dataGen, indGen := w.dataGen, w.indGen
	assetType, ind := w.assetType, w.indicator

	var bars []chart.Bar
	var raw json.RawMessage
	var fetchErr error
	m.sched.Go(func() {
		ctx, cancel := m.fetchContext()
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			bars, err = m.backend.Bars(gctx, string(assetType), sel.Symbol, sel.Start, sel.End)
			return err
		})
		g.Go(func() error {
			var err error
			raw, err = m.backend.Indicator(gctx, string(assetType), sel.Symbol, sel.Start, sel.End, indicatorQuery(ind))
			return err
		})
		fetchErr = g.Wait()
	}, func() {
		if !m.current(w) {
			slog.Debug("dropping data for destroyed window", "window_id", id)
			return
		}
		if w.dataGen != dataGen {
			slog.Debug("dropping stale data response", "window_id", id, "symbol", sel.Symbol)
			return
		}
		if fetchErr != nil {
			m.fail(w, "load data", fetchErr)
			return
		}
		m.applyData(w, sel, bars, raw, ind, w.indGen == indGen)
	})
	return nil
}

func (m *Manager) applyData(w *Window, sel Selection, bars []chart.Bar, raw json.RawMessage, ind Indicator, indicatorCurrent bool) {
	if err := w.price.SetSeries(CandleSeries(bars)); err != nil {
		slog.Error("price update skipped", "window_id", w.id, "error", err)
	}
	if err := w.volume.SetSeries(VolumeSeries(bars)); err != nil {
		slog.Error("volume update skipped", "window_id", w.id, "error", err)
	}
	if indicatorCurrent {
		if err := renderIndicator(w.indicPane, ind, raw); err != nil {
			slog.Error("indicator update skipped", "window_id", w.id, "indicator", indicatorQuery(ind), "error", err)
		}
	}
	w.status = fmt.Sprintf("%s %s..%s: %d bars", sel.Symbol, sel.Start, sel.End, len(bars))
	slog.Info("window data loaded", "window_id", w.id, "symbol", sel.Symbol, "bars", len(bars))

	m.sched.NextFrame(func() {
		if !m.current(w) {
			return
		}
		for _, p := range w.Panes() {
			p.FitContent()
		}
		w.group.Wire()
	})
}

// ChangeAssetType stores the asset type and reloads the symbol list. Chart
// data is left as is.
func (m *Manager) ChangeAssetType(id int, assetType string) error {
	at, err := ParseAssetType(assetType)
	if err != nil {
		return m.reject(err)
	}
	w, err := m.lookup(id)
	if err != nil {
		return err
	}
	w.assetType = at
	m.loadSymbols(w)
	return nil
}

// ChangeTimeframe stores the timeframe only. Reloading stays an explicit
// LoadData call.
func (m *Manager) ChangeTimeframe(id int, timeframe string) error {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return m.reject(err)
	}
	w, err := m.lookup(id)
	if err != nil {
		return err
	}
	w.timeframe = tf
	slog.Info("window timeframe changed", "window_id", id, "timeframe", tf)
	return nil
}

// SetIndicator replaces the indicator pane's content with kind once the
// fetch returns. A window must have a selection first.
func (m *Manager) SetIndicator(id int, kind string) error {
	ind, err := ParseIndicator(kind)
	if err != nil {
		return m.reject(err)
	}
	w, err := m.lookup(id)
	if err != nil {
		return err
	}
	if w.selection == nil {
		return m.reject(apperr.Validation("select a symbol and date range first"))
	}

	w.indicator = ind
	w.indGen++
	gen := w.indGen
	sel := *w.selection
	assetType := w.assetType

	var raw json.RawMessage
	var fetchErr error
	m.sched.Go(func() {
		ctx, cancel := m.fetchContext()
		defer cancel()
		raw, fetchErr = m.backend.Indicator(ctx, string(assetType), sel.Symbol, sel.Start, sel.End, indicatorQuery(ind))
	}, func() {
		if !m.current(w) || w.indGen != gen {
			slog.Debug("dropping stale indicator response", "window_id", id, "indicator", indicatorQuery(ind))
			return
		}
		if fetchErr != nil {
			m.fail(w, "load indicator", fetchErr)
			return
		}
		if err := renderIndicator(w.indicPane, ind, raw); err != nil {
			slog.Error("indicator update skipped", "window_id", id, "indicator", indicatorQuery(ind), "error", err)
			return
		}
		w.indicPane.FitContent()
	})
	return nil
}

// ReloadAll reloads every window that has a symbol with a new date range and
// returns how many reloads were started.
func (m *Manager) ReloadAll(start, end string) (int, error) {
	n := 0
	for _, id := range m.IDs() {
		w := m.windows[id]
		if w.symbol == "" {
			continue
		}
		if err := m.LoadData(id, w.symbol, start, end); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ResizeAll resizes and refits every pane of every live window in
// registration order.
func (m *Manager) ResizeAll(measure MeasureFunc) {
	for slot, id := range m.IDs() {
		w, ok := m.windows[id]
		if !ok {
			continue
		}
		for _, p := range w.Panes() {
			size := measure(slot, w, p.Role())
			p.Resize(size.Width, size.Height)
			p.FitContent()
		}
	}
}
