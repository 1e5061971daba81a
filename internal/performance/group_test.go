package performance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/surface"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

const day = 86400

func ts(s string) *backend.Timestamp {
	t, err := time.Parse(backend.DateLayout, s)
	if err != nil {
		panic(err)
	}
	v := backend.Timestamp(t.Unix())
	return &v
}

type barsCall struct {
	assetType, symbol, start, end string
}

type fakeBackend struct {
	mu        sync.Mutex
	projects  []string
	summary   backend.ProjectSummary
	data      backend.StrategyData
	symbols   []string
	trades    map[string][]backend.Trade
	bars      []chart.Bar
	runErr    error
	openCalls int
	barsCalls []barsCall
	runCalls  int
	reloads   int
}

func newFakeBackend() *fakeBackend {
	times := []backend.Timestamp{1704067200, 1704067200 + day, 1704067200 + 2*day}
	bars := make([]chart.Bar, 0, 3)
	for i, t := range times {
		bars = append(bars, chart.Bar{Time: chart.Time(t), Open: 10, High: 12, Low: 9, Close: 11, Volume: float64(100 + i)})
	}
	return &fakeBackend{
		projects: []string{"alpha", "beta"},
		summary: backend.ProjectSummary{
			Status:    "done",
			StartTime: ts("2024-03-31"),
			EndTime:   ts("2024-12-31"),
		},
		data: backend.StrategyData{
			Time:     times,
			Balance:  []float64{10, 20},
			Drawdown: []float64{1, 2, 3},
			DailyPnL: []float64{5, 5, 5},
		},
		symbols: []string{"600000", "000001"},
		trades: map[string][]backend.Trade{
			"600000": {
				{Time: times[0], Direction: "LONG", Price: 10.5},
				{Time: times[2], Direction: "SHORT", Price: 11},
			},
		},
		bars: bars,
	}
}

func (f *fakeBackend) Projects(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects, nil
}

func (f *fakeBackend) Project(context.Context, string) (*backend.ProjectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	s := f.summary
	return &s, nil
}

func (f *fakeBackend) ProjectData(context.Context, string) (*backend.StrategyData, error) {
	d := f.data
	return &d, nil
}

func (f *fakeBackend) TradedSymbols(context.Context, string) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeBackend) Trades(_ context.Context, _, symbol string) ([]backend.Trade, error) {
	return f.trades[symbol], nil
}

func (f *fakeBackend) Bars(_ context.Context, assetType, symbol, start, end string) ([]chart.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barsCalls = append(f.barsCalls, barsCall{assetType, symbol, start, end})
	return f.bars, nil
}

func (f *fakeBackend) RunProject(context.Context, string, string, string) (*backend.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &backend.ActionResponse{Success: true}, nil
}

func (f *fakeBackend) ReloadProjects(context.Context) (*backend.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return &backend.ActionResponse{Success: true}, nil
}

type recordingNotifier struct {
	errors, infos, successes []string
}

func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }
func (n *recordingNotifier) Info(msg string)    { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }

func newGroup(t *testing.T) (*Group, *fakeBackend, *recordingNotifier, *frame.Manual) {
	t.Helper()
	sched := frame.NewManual()
	be := newFakeBackend()
	n := &recordingNotifier{}
	g, err := New(sched, be, n, surface.Factory{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g, be, n, sched
}

func TestOpenIsolatesMalformedMetric(t *testing.T) {
	g, _, n, sched := newGroup(t)
	if err := g.Open("alpha"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sched.Settle()

	if names := g.balance.SeriesNames(); len(names) != 0 {
		t.Fatalf("balance series = %v, want none for length mismatch", names)
	}
	dd, ok := g.drawdown.Series("drawdown")
	if !ok || dd.Len() != 3 || dd.Color != colorDrawdown || dd.Kind != chart.KindLine {
		t.Fatalf("drawdown = %+v ok=%v", dd, ok)
	}
	pnl, ok := g.dailyPnL.Series("daily_pnl")
	if !ok || pnl.Len() != 3 || pnl.Kind != chart.KindHistogram {
		t.Fatalf("daily_pnl = %+v ok=%v", pnl, ok)
	}
	if len(n.errors) != 0 {
		t.Fatalf("errors = %v, shape errors must only be logged", n.errors)
	}
	if !g.Sync().Wired() {
		t.Fatal("group not wired after open")
	}
	if g.Sync().Ready(PaneTraded) {
		t.Fatal("traded pane must not be ready before a symbol loads")
	}
	info := g.Summary()
	if info.Project != "alpha" || len(info.TradedSymbols) != 2 || info.Summary == nil {
		t.Fatalf("summary = %+v", info)
	}
}

func TestOpenRequiresName(t *testing.T) {
	g, _, n, _ := newGroup(t)
	err := g.Open("  ")
	if apperr.Code(err) != apperr.CodeValidation {
		t.Fatalf("Open() error = %v, want validation", err)
	}
	if len(n.errors) != 1 {
		t.Fatalf("errors = %v", n.errors)
	}
}

func TestTradedPaneJoinsAfterSymbolLoads(t *testing.T) {
	g, be, _, sched := newGroup(t)
	_ = g.Open("alpha")
	sched.Settle()

	// Not ready: moving a metric pane does not touch the traded pane.
	g.drawdown.Surface().(chart.Emitter).EmitRange(&chart.Range{From: 1704067200, To: 1704067200 + day})
	sched.Settle()
	if _, ok := g.traded.VisibleRange(); ok {
		t.Fatal("traded pane received a range while not ready")
	}

	if err := g.SelectTradedSymbol("600000"); err != nil {
		t.Fatalf("SelectTradedSymbol() error = %v", err)
	}
	sched.Settle()

	if !g.Sync().Ready(PaneTraded) {
		t.Fatal("traded pane not ready after bars loaded")
	}
	if len(be.barsCalls) != 1 {
		t.Fatalf("bars calls = %d", len(be.barsCalls))
	}
	want := barsCall{"zh_stocks", "600000", "2024-02-29", "2025-01-31"}
	if be.barsCalls[0] != want {
		t.Fatalf("bars call = %+v, want %+v", be.barsCalls[0], want)
	}

	markers := g.traded.Markers(workspace.SeriesCandles)
	if len(markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(markers))
	}
	if m := markers[0]; m.Text != "Buy @ 10.5" || m.Position != chart.BelowBar || m.Shape != chart.ArrowUp {
		t.Fatalf("buy marker = %+v", m)
	}
	if m := markers[1]; m.Text != "Sell @ 11" || m.Position != chart.AboveBar || m.Shape != chart.ArrowDown {
		t.Fatalf("sell marker = %+v", m)
	}

	r := chart.Range{From: 1704067200 + day, To: 1704067200 + 2*day}
	g.balance.Surface().(chart.Emitter).EmitRange(&r)
	sched.Settle()
	if got, ok := g.traded.VisibleRange(); !ok || got != r {
		t.Fatalf("traded range = %v,%v want %v", got, ok, r)
	}
}

func TestSymbolWithoutTradesLeavesTradedPaneNotReady(t *testing.T) {
	g, be, _, sched := newGroup(t)
	_ = g.Open("alpha")
	sched.Settle()
	_ = g.SelectTradedSymbol("600000")
	sched.Settle()
	if !g.Sync().Ready(PaneTraded) {
		t.Fatal("traded pane not ready after trades loaded")
	}

	_ = g.SelectTradedSymbol("000001")
	sched.Settle()

	if len(be.barsCalls) != 1 {
		t.Fatalf("bars calls = %d, want 1", len(be.barsCalls))
	}
	if g.Sync().Ready(PaneTraded) {
		t.Fatal("traded pane still ready for a symbol without trades")
	}
	if got := len(g.traded.Markers(workspace.SeriesCandles)); got != 0 {
		t.Fatalf("markers = %d, want none", got)
	}
}

func TestSelectTradedSymbolNeedsProject(t *testing.T) {
	g, _, _, _ := newGroup(t)
	if err := g.SelectTradedSymbol("600000"); apperr.Code(err) != apperr.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestShiftMonthsClampsDay(t *testing.T) {
	tests := []struct {
		in    string
		delta int
		want  string
	}{
		{"2024-03-31", -1, "2024-02-29"},
		{"2023-03-31", -1, "2023-02-28"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2024-12-15", 1, "2025-01-15"},
		{"2024-01-10", -1, "2023-12-10"},
	}
	for _, tt := range tests {
		in, _ := time.Parse(backend.DateLayout, tt.in)
		if got := shiftMonths(in, tt.delta).Format(backend.DateLayout); got != tt.want {
			t.Fatalf("shiftMonths(%s, %d) = %s, want %s", tt.in, tt.delta, got, tt.want)
		}
	}
}

func TestRunProjectReopensCurrent(t *testing.T) {
	g, be, n, sched := newGroup(t)
	_ = g.Open("alpha")
	sched.Settle()
	before := be.openCalls

	var done error = errors.New("not called")
	if err := g.RunProject("alpha", "2024-01-01", "2024-06-30", func(err error) { done = err }); err != nil {
		t.Fatalf("RunProject() error = %v", err)
	}
	sched.Settle()

	if done != nil {
		t.Fatalf("done = %v", done)
	}
	if be.openCalls != before+1 {
		t.Fatalf("project fetches = %d, want %d", be.openCalls, before+1)
	}
	if len(n.successes) != 1 {
		t.Fatalf("successes = %v", n.successes)
	}

	_ = g.RunProject("beta", "2024-01-01", "2024-06-30", nil)
	sched.Settle()
	if be.openCalls != before+1 {
		t.Fatal("running another project reopened the current one")
	}
}

func TestRunProjectValidatesAndReportsFailure(t *testing.T) {
	g, be, n, sched := newGroup(t)
	if err := g.RunProject("alpha", "", "2024-06-30", nil); apperr.Code(err) != apperr.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	if be.runCalls != 0 {
		t.Fatal("backend called for invalid request")
	}

	be.runErr = apperr.New(apperr.CodeBackend, "engine busy", nil)
	_ = g.RunProject("alpha", "2024-01-01", "2024-06-30", nil)
	sched.Settle()
	last := n.errors[len(n.errors)-1]
	if !strings.Contains(last, "engine busy") {
		t.Fatalf("last error = %q", last)
	}
}

func TestReloadProjectsRefreshesList(t *testing.T) {
	g, be, n, sched := newGroup(t)
	var got error = errors.New("not called")
	g.ReloadProjects(func(err error) { got = err })
	sched.Settle()

	if got != nil || be.reloads != 1 {
		t.Fatalf("done=%v reloads=%d", got, be.reloads)
	}
	if list := g.Summary().Projects; len(list) != 2 {
		t.Fatalf("projects = %v", list)
	}
	if len(n.successes) != 2 || n.successes[1] != "loaded 2 projects" {
		t.Fatalf("successes = %v", n.successes)
	}
}

func TestSetVisibleResizes(t *testing.T) {
	g, _, _, _ := newGroup(t)
	g.SetVisible(true)
	if got := g.traded.Size(); got != (chart.Size{Width: 1200, Height: 320}) {
		t.Fatalf("traded size = %v", got)
	}
	if got := g.balance.Size(); got != (chart.Size{Width: 1200, Height: 160}) {
		t.Fatalf("balance size = %v", got)
	}
	g.SetVisible(false)
	if got := g.dailyPnL.Size(); got != (chart.Size{}) {
		t.Fatalf("hidden size = %v", got)
	}
}
