// Package performance drives the project panel: a four-pane synchronized
// view of one backtest project and, optionally, one of its traded symbols.
package performance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/syncgroup"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

const (
	PaneTraded   = "perf/traded"
	PaneBalance  = "perf/balance"
	PaneDrawdown = "perf/drawdown"
	PaneDailyPnL = "perf/daily_pnl"
)

const (
	colorBalance  = "#26a69a"
	colorDrawdown = "#ef5350"
	colorDailyPnL = "#26a69a"
)

type Backend interface {
	Projects(ctx context.Context) ([]string, error)
	Project(ctx context.Context, name string) (*backend.ProjectSummary, error)
	ProjectData(ctx context.Context, name string) (*backend.StrategyData, error)
	TradedSymbols(ctx context.Context, project string) ([]string, error)
	Trades(ctx context.Context, project, symbol string) ([]backend.Trade, error)
	Bars(ctx context.Context, assetType, symbol, start, end string) ([]chart.Bar, error)
	RunProject(ctx context.Context, name, start, end string) (*backend.ActionResponse, error)
	ReloadProjects(ctx context.Context) (*backend.ActionResponse, error)
}

type Notifier interface {
	Error(msg string)
	Info(msg string)
	Success(msg string)
}

type Options struct {
	// TradedAssetType is the asset type traded-symbol bars are fetched from.
	TradedAssetType string
	FetchTimeout    time.Duration
	PanelWidth      int
	TradedHeight    int
	MetricHeight    int
}

// Group is the project panel. Its panes are created once and reused for
// every project. It must be used from the frame loop.
type Group struct {
	sched    frame.Scheduler
	backend  Backend
	notifier Notifier
	opts     Options

	traded   *chart.Pane
	balance  *chart.Pane
	drawdown *chart.Pane
	dailyPnL *chart.Pane
	group    *syncgroup.Group

	projects      []string
	project       string
	summary       *backend.ProjectSummary
	tradedSymbols []string
	symbol        string
	trades        int
	visible       bool
	status        string

	openGen   uint64
	symbolGen uint64
}

func New(sched frame.Scheduler, be Backend, notifier Notifier, surfaces workspace.SurfaceFactory, opts Options) (*Group, error) {
	if opts.TradedAssetType == "" {
		opts.TradedAssetType = string(workspace.AssetStocks)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.PanelWidth <= 0 {
		opts.PanelWidth = 1200
	}
	if opts.TradedHeight <= 0 {
		opts.TradedHeight = 320
	}
	if opts.MetricHeight <= 0 {
		opts.MetricHeight = 160
	}

	specs := []struct {
		id   string
		role chart.Role
	}{
		{PaneTraded, chart.RolePrice},
		{PaneBalance, chart.RoleMetric},
		{PaneDrawdown, chart.RoleMetric},
		{PaneDailyPnL, chart.RoleMetric},
	}
	panes := make([]*chart.Pane, 0, len(specs))
	for _, s := range specs {
		surf, err := surfaces.NewSurface(s.id)
		if err != nil {
			for _, p := range panes {
				p.Destroy()
			}
			return nil, fmt.Errorf("project panel: surface %s: %w", s.id, err)
		}
		panes = append(panes, chart.NewPane(s.id, s.role, surf))
	}

	g := &Group{
		sched:    sched,
		backend:  be,
		notifier: notifier,
		opts:     opts,
		traded:   panes[0],
		balance:  panes[1],
		drawdown: panes[2],
		dailyPnL: panes[3],
		group:    syncgroup.New("project", sched, panes...),
		status:   "no project",
	}
	g.group.SetReady(PaneTraded, false)
	return g, nil
}

func (g *Group) Panes() []*chart.Pane {
	return []*chart.Pane{g.traded, g.balance, g.drawdown, g.dailyPnL}
}

func (g *Group) Pane(id string) (*chart.Pane, bool) {
	for _, p := range g.Panes() {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

func (g *Group) Sync() *syncgroup.Group { return g.group }

func (g *Group) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.opts.FetchTimeout)
}

func (g *Group) reject(err error) error {
	g.notifier.Error(err.Error())
	return err
}

func (g *Group) fail(op string, err error) {
	slog.Error("project panel "+op+" failed", "project", g.project, "error", err)
	g.status = op + " failed"
	if apperr.UserVisible(err) {
		g.notifier.Error(fmt.Sprintf("%s failed: %v", op, err))
	}
}

// Open loads a project's summary and strategy series and, once they land,
// wires the panel with the traded pane not ready.
func (g *Group) Open(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return g.reject(apperr.Validation("project name is required"))
	}

	g.openGen++
	g.symbolGen++
	gen := g.openGen
	g.project = name
	g.summary = nil
	g.tradedSymbols = nil
	g.symbol = ""
	g.trades = 0
	g.status = "loading " + name
	g.group.SetReady(PaneTraded, false)

	var (
		summary    *backend.ProjectSummary
		data       *backend.StrategyData
		symbols    []string
		err        error
		symbolsErr error
	)
	g.sched.Go(func() {
		ctx, cancel := g.fetchContext()
		defer cancel()
		if summary, err = g.backend.Project(ctx, name); err != nil {
			return
		}
		if data, err = g.backend.ProjectData(ctx, name); err != nil {
			return
		}
		symbols, symbolsErr = g.backend.TradedSymbols(ctx, name)
	}, func() {
		if g.openGen != gen {
			slog.Debug("dropping stale project response", "project", name)
			return
		}
		if err != nil {
			g.fail("load project "+name, err)
			return
		}
		g.summary = summary
		g.applyStrategy(data)
		if symbolsErr != nil {
			g.fail("load traded symbols", symbolsErr)
		} else {
			g.tradedSymbols = symbols
		}
		g.status = fmt.Sprintf("%s: %d traded symbols", name, len(g.tradedSymbols))
		slog.Info("project opened", "project", name, "traded_symbols", len(g.tradedSymbols))

		g.sched.NextFrame(func() {
			if g.openGen != gen {
				return
			}
			g.group.Wire()
		})
	})
	return nil
}

// applyStrategy pushes each metric series independently; a malformed series
// is skipped without affecting the others.
func (g *Group) applyStrategy(data *backend.StrategyData) {
	metrics := []struct {
		pane   *chart.Pane
		name   string
		kind   chart.SeriesKind
		color  string
		values []float64
	}{
		{g.balance, "balance", chart.KindLine, colorBalance, data.Balance},
		{g.drawdown, "drawdown", chart.KindLine, colorDrawdown, data.Drawdown},
		{g.dailyPnL, "daily_pnl", chart.KindHistogram, colorDailyPnL, data.DailyPnL},
	}
	for _, m := range metrics {
		if len(m.values) == 0 {
			continue
		}
		series, err := metricSeries(m.name, m.kind, m.color, data.Time, m.values)
		if err == nil {
			err = m.pane.SetSeries(series)
		}
		if err != nil {
			slog.Error("metric update skipped", "project", g.project, "pane_id", m.pane.ID(), "error", err)
			continue
		}
		m.pane.FitContent()
	}
}

func metricSeries(name string, kind chart.SeriesKind, color string, times []backend.Timestamp, values []float64) (chart.Series, error) {
	if len(times) != len(values) {
		return chart.Series{}, apperr.New(apperr.CodeDataShape,
			fmt.Sprintf("%s has %d values for %d timestamps", name, len(values), len(times)), nil)
	}
	pts := make([]chart.Point, len(values))
	for i, v := range values {
		pts[i] = chart.Point{Time: chart.Time(times[i]), Value: v}
	}
	return chart.Series{Name: name, Kind: kind, Color: color, Points: pts}, nil
}

func tradeMarkers(trades []backend.Trade) []chart.Marker {
	out := make([]chart.Marker, 0, len(trades))
	for _, t := range trades {
		price := strconv.FormatFloat(t.Price, 'f', -1, 64)
		m := chart.Marker{Time: chart.Time(t.Time)}
		if t.Direction == "LONG" {
			m.Position, m.Shape, m.Color, m.Text = chart.BelowBar, chart.ArrowUp, workspace.ColorUp, "Buy @ "+price
		} else {
			m.Position, m.Shape, m.Color, m.Text = chart.AboveBar, chart.ArrowDown, workspace.ColorDown, "Sell @ "+price
		}
		out = append(out, m)
	}
	return out
}

func tradeSpan(trades []backend.Trade) (chart.Time, chart.Time) {
	lo, hi := chart.Time(trades[0].Time), chart.Time(trades[0].Time)
	for _, t := range trades[1:] {
		if tt := chart.Time(t.Time); tt < lo {
			lo = tt
		} else if tt > hi {
			hi = tt
		}
	}
	return lo, hi
}

// SelectTradedSymbol shows a traded symbol's bars and trade markers on the
// traded pane. A symbol without trades leaves the pane as it was.
func (g *Group) SelectTradedSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return g.reject(apperr.Validation("symbol is required"))
	}
	if g.project == "" {
		return g.reject(apperr.Validation("open a project first"))
	}

	g.symbolGen++
	gen := g.symbolGen
	g.symbol = symbol
	project, summary := g.project, g.summary
	assetType := g.opts.TradedAssetType

	var (
		trades []backend.Trade
		bars   []chart.Bar
		err    error
	)
	g.sched.Go(func() {
		ctx, cancel := g.fetchContext()
		defer cancel()
		if trades, err = g.backend.Trades(ctx, project, symbol); err != nil || len(trades) == 0 {
			return
		}
		if summary == nil {
			if summary, err = g.backend.Project(ctx, project); err != nil {
				return
			}
		}
		start, end := tradeSpan(trades)
		if summary.StartTime != nil {
			start = chart.Time(*summary.StartTime)
		}
		if summary.EndTime != nil {
			end = chart.Time(*summary.EndTime)
		}
		from, to := displayWindow(start, end)
		bars, err = g.backend.Bars(ctx, assetType, symbol, from, to)
	}, func() {
		if g.symbolGen != gen {
			slog.Debug("dropping stale traded symbol response", "symbol", symbol)
			return
		}
		if err != nil {
			g.fail("load trades for "+symbol, err)
			return
		}
		g.trades = len(trades)
		if len(trades) == 0 {
			g.group.SetReady(PaneTraded, false)
			if err := g.traded.SetMarkers(workspace.SeriesCandles, nil); err != nil {
				slog.Warn("clear trade markers failed", "error", err)
			}
			g.status = symbol + ": no trades"
			slog.Info("traded symbol has no trades", "project", project, "symbol", symbol)
			return
		}
		g.applyTraded(symbol, trades, bars)
	})
	return nil
}

func (g *Group) applyTraded(symbol string, trades []backend.Trade, bars []chart.Bar) {
	candles := workspace.CandleSeries(bars)
	volume := workspace.VolumeSeries(bars)
	if err := g.traded.SetMarkers(workspace.SeriesCandles, nil); err != nil {
		slog.Warn("clear trade markers failed", "error", err)
	}
	cErr := g.traded.SetSeries(candles)
	vErr := g.traded.SetSeries(volume)
	if cErr != nil || vErr != nil {
		slog.Error("traded pane update skipped", "symbol", symbol, "candles_error", cErr, "volume_error", vErr)
		g.group.SetReady(PaneTraded, false)
		return
	}
	if err := g.traded.SetMarkers(workspace.SeriesCandles, tradeMarkers(trades)); err != nil {
		slog.Warn("set trade markers failed", "symbol", symbol, "error", err)
	}
	g.group.SetReady(PaneTraded, len(candles.Bars) > 0 && len(volume.Points) > 0)
	g.traded.FitContent()
	g.status = fmt.Sprintf("%s: %d trades, %d bars", symbol, len(trades), len(bars))
	slog.Info("traded symbol loaded", "symbol", symbol, "trades", len(trades), "bars", len(bars))
}

// ListProjects refreshes the project list. done, if set, runs on the frame
// loop with the outcome.
func (g *Group) ListProjects(done func([]string, error)) {
	var projects []string
	var err error
	g.sched.Go(func() {
		ctx, cancel := g.fetchContext()
		defer cancel()
		projects, err = g.backend.Projects(ctx)
	}, func() {
		if err != nil {
			g.fail("load projects", err)
		} else {
			g.projects = projects
			g.notifier.Success(fmt.Sprintf("loaded %d projects", len(projects)))
		}
		if done != nil {
			done(projects, err)
		}
	})
}

// RunProject asks the backend to run a backtest and reopens the project when
// it is the one on display.
func (g *Group) RunProject(name, start, end string, done func(error)) error {
	name, start, end = strings.TrimSpace(name), strings.TrimSpace(start), strings.TrimSpace(end)
	if name == "" || start == "" || end == "" {
		return g.reject(apperr.Validation("project name, start_date and end_date are required"))
	}
	g.notifier.Info("running project " + name)

	var err error
	g.sched.Go(func() {
		ctx, cancel := g.fetchContext()
		defer cancel()
		_, err = g.backend.RunProject(ctx, name, start, end)
	}, func() {
		if err != nil {
			g.fail("run project "+name, err)
		} else {
			g.notifier.Success("project " + name + " finished")
			if g.project == name {
				_ = g.Open(name)
			}
		}
		if done != nil {
			done(err)
		}
	})
	return nil
}

// ReloadProjects asks the backend to rescan projects, then refreshes the list.
func (g *Group) ReloadProjects(done func(error)) {
	g.notifier.Info("reloading projects")
	var err error
	g.sched.Go(func() {
		ctx, cancel := g.fetchContext()
		defer cancel()
		_, err = g.backend.ReloadProjects(ctx)
	}, func() {
		if err != nil {
			g.fail("reload projects", err)
			if done != nil {
				done(err)
			}
			return
		}
		g.notifier.Success("projects reloaded")
		g.ListProjects(func(_ []string, err error) {
			if done != nil {
				done(err)
			}
		})
	})
}

// SetVisible shows or hides the panel. Hidden panes are sized to zero.
func (g *Group) SetVisible(visible bool) {
	g.visible = visible
	for _, p := range g.Panes() {
		w, h := 0, 0
		if visible {
			w, h = g.opts.PanelWidth, g.opts.MetricHeight
			if p == g.traded {
				h = g.opts.TradedHeight
			}
		}
		p.Resize(w, h)
		p.FitContent()
	}
}

// Info is a read-only view of the panel.
type Info struct {
	Projects      []string                `json:"projects"`
	Project       string                  `json:"project,omitempty"`
	Summary       *backend.ProjectSummary `json:"summary,omitempty"`
	TradedSymbols []string                `json:"traded_symbols"`
	Symbol        string                  `json:"symbol,omitempty"`
	Trades        int                     `json:"trades"`
	TradedReady   bool                    `json:"traded_ready"`
	Visible       bool                    `json:"visible"`
	Status        string                  `json:"status"`
	Panes         []chart.PaneInfo        `json:"panes"`
	SyncState     string                  `json:"sync_state"`
	Sync          syncgroup.Stats         `json:"sync"`
}

func (g *Group) Summary() Info {
	info := Info{
		Projects:      append([]string{}, g.projects...),
		Project:       g.project,
		Summary:       g.summary,
		TradedSymbols: append([]string{}, g.tradedSymbols...),
		Symbol:        g.symbol,
		Trades:        g.trades,
		TradedReady:   g.group.Ready(PaneTraded),
		Visible:       g.visible,
		Status:        g.status,
		SyncState:     g.group.State().String(),
		Sync:          g.group.Stats(),
	}
	for _, p := range g.Panes() {
		info.Panes = append(info.Panes, p.Info())
	}
	return info
}
