package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/config"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/surface"
)

const day = 86400

// inlineRunner runs fn and every follow-up task and frame it schedules.
type inlineRunner struct{ sched *frame.Manual }

func (r inlineRunner) Do(_ context.Context, fn func()) error {
	fn()
	r.sched.Settle()
	return nil
}

type fakeBackend struct{}

func points(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"time":%d,"value":%d}`, 1700000000+i*day, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (fakeBackend) Symbols(context.Context, string) ([]string, error) { return []string{"X", "Y"}, nil }

func (fakeBackend) Bars(context.Context, string, string, string, string) ([]chart.Bar, error) {
	bars := make([]chart.Bar, 4)
	for i := range bars {
		bars[i] = chart.Bar{Time: chart.Time(1700000000 + i*day), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	}
	return bars, nil
}

func (fakeBackend) Indicator(_ context.Context, _, _, _, _, name string) (json.RawMessage, error) {
	if name == backend.IndicatorAllMA {
		p := points(4)
		return json.RawMessage(fmt.Sprintf(`{"ma5":%s,"ma10":%s,"ma20":%s,"ma60":%s}`, p, p, p, p)), nil
	}
	return json.RawMessage(points(4)), nil
}

func (fakeBackend) Projects(context.Context) ([]string, error) { return []string{"alpha"}, nil }
func (fakeBackend) Project(context.Context, string) (*backend.ProjectSummary, error) {
	return &backend.ProjectSummary{Status: "done"}, nil
}
func (fakeBackend) ProjectData(context.Context, string) (*backend.StrategyData, error) {
	return &backend.StrategyData{}, nil
}
func (fakeBackend) TradedSymbols(context.Context, string) ([]string, error) { return nil, nil }
func (fakeBackend) Trades(context.Context, string, string) ([]backend.Trade, error) {
	return nil, nil
}
func (fakeBackend) RunProject(context.Context, string, string, string) (*backend.ActionResponse, error) {
	return &backend.ActionResponse{Success: true}, nil
}
func (fakeBackend) ReloadProjects(context.Context) (*backend.ActionResponse, error) {
	return &backend.ActionResponse{Success: true}, nil
}

func newSession(t *testing.T) *Session {
	t.Helper()
	sched := frame.NewManual()
	s, err := New(inlineRunner{sched}, sched, fakeBackend{}, surface.Factory{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestRequireNonEmpty(t *testing.T) {
	s := &Session{}
	if err := s.requireNonEmpty("w1/price", "pane_id"); err != nil {
		t.Fatalf("requireNonEmpty() = %v; want nil", err)
	}
	err := s.requireNonEmpty("   ", "pane_id")
	var got *apperr.CodedError
	if !errors.As(err, &got) {
		t.Fatalf("requireNonEmpty() = %T; want *apperr.CodedError", err)
	}
	if got.Code != apperr.CodeValidation || got.Message != "pane_id is required" {
		t.Fatalf("requireNonEmpty() = %q/%q", got.Code, got.Message)
	}
}

func TestCreateAndLoadWindow(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	w, err := s.CreateWindow(ctx, "")
	if err != nil {
		t.Fatalf("CreateWindow() error = %v", err)
	}
	if w.Timeframe != "1d" {
		t.Fatalf("timeframe = %s, want 1d", w.Timeframe)
	}
	// The symbol list arrives after CreateWindow returns.
	if w, _ = s.Window(ctx, w.ID); len(w.Symbols) != 2 {
		t.Fatalf("symbols = %v", w.Symbols)
	}

	w, err = s.LoadData(ctx, w.ID, "X", "2023-11-14", "2023-11-20")
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if w.Selection == nil || w.Selection.Symbol != "X" {
		t.Fatalf("selection = %+v", w.Selection)
	}

	pane, err := s.Pane(ctx, "w1/price")
	if err != nil {
		t.Fatalf("Pane() error = %v", err)
	}
	if len(pane.Series) != 1 || pane.Series[0].Points != 4 {
		t.Fatalf("price pane = %+v", pane)
	}
}

func TestWindowNotFound(t *testing.T) {
	s := newSession(t)
	_, err := s.Window(context.Background(), 42)
	if apperr.Code(err) != apperr.CodeWindowNotFound {
		t.Fatalf("Window(42) error = %v", err)
	}
	removed, err := s.DestroyWindow(context.Background(), 42)
	if err != nil || removed {
		t.Fatalf("DestroyWindow(42) = %v, %v", removed, err)
	}
}

func TestCreateWindowRejectsTimeframe(t *testing.T) {
	s := newSession(t)
	if _, err := s.CreateWindow(context.Background(), "4h"); apperr.Code(err) != apperr.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestInboundRangeSyncsSiblings(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	w, _ := s.CreateWindow(ctx, "1d")
	if _, err := s.LoadData(ctx, w.ID, "X", "2023-11-14", "2023-11-20"); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	msg := `{"type":"range","pane":"w1/volume","range":{"from":1700086400,"to":1700172800}}`
	if err := s.HandleInbound(ctx, []byte(msg)); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}
	price, _ := s.Pane(ctx, "w1/price")
	if price.VisibleRange == nil || price.VisibleRange.From != 1700086400 {
		t.Fatalf("price range = %v", price.VisibleRange)
	}
}

func TestInboundRejectsBadMessages(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	tests := []struct {
		name string
		msg  string
		code string
	}{
		{"malformed", `{`, apperr.CodeValidation},
		{"unknown type", `{"type":"zoom"}`, apperr.CodeValidation},
		{"missing pane", `{"type":"crosshair","time":1}`, apperr.CodeValidation},
		{"unknown pane", `{"type":"crosshair","pane":"w9/price","time":1}`, apperr.CodePaneNotFound},
		{"bad viewport", `{"type":"viewport","width":0,"height":10}`, apperr.CodeValidation},
	}
	for _, tt := range tests {
		if err := s.HandleInbound(ctx, []byte(tt.msg)); apperr.Code(err) != tt.code {
			t.Fatalf("%s: error = %v, want %s", tt.name, err, tt.code)
		}
	}
}

func TestLayoutAndViewport(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	res, err := s.ApplyLayout(ctx, "2x2")
	if err != nil {
		t.Fatalf("ApplyLayout() error = %v", err)
	}
	if len(res.Created) != 4 || res.Tag != "layout-2x2" {
		t.Fatalf("result = %+v", res)
	}
	info, err := s.SetViewport(ctx, 800, 600)
	if err != nil {
		t.Fatalf("SetViewport() error = %v", err)
	}
	if info.Geometry.Viewport.Width != 800 || len(info.Windows) != 4 {
		t.Fatalf("layout = %+v", info)
	}
}

func TestProjectActionsWaitForBackend(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	projects, err := s.ListProjects(ctx)
	if err != nil || len(projects) != 1 || projects[0] != "alpha" {
		t.Fatalf("ListProjects() = %v, %v", projects, err)
	}
	if err := s.RunProject(ctx, "alpha", "2024-01-01", "2024-02-01"); err != nil {
		t.Fatalf("RunProject() error = %v", err)
	}
	if err := s.RunProject(ctx, "", "2024-01-01", "2024-02-01"); apperr.Code(err) != apperr.CodeValidation {
		t.Fatalf("RunProject(empty) error = %v", err)
	}
	if err := s.ReloadProjects(ctx); err != nil {
		t.Fatalf("ReloadProjects() error = %v", err)
	}

	notes, _ := s.Notifications(ctx)
	if len(notes) == 0 {
		t.Fatal("expected notifications from project actions")
	}
	ok, err := s.DismissNotification(ctx, notes[0].ID)
	if err != nil || !ok {
		t.Fatalf("DismissNotification() = %v, %v", ok, err)
	}
}

func TestPanelPanesAreAddressable(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	if _, err := s.OpenProject(ctx, "alpha"); err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	if _, err := s.Pane(ctx, "perf/balance"); err != nil {
		t.Fatalf("Pane(perf/balance) error = %v", err)
	}
	info, err := s.SetPanelVisible(ctx, true)
	if err != nil || !info.Visible {
		t.Fatalf("SetPanelVisible() = %+v, %v", info, err)
	}
}

func TestApplyDashboardGrowsLayoutForPresets(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	d := config.DefaultDashboard()
	d.Windows = []config.WindowPreset{
		{Symbol: "X", StartDate: "2023-11-14", EndDate: "2023-11-20", Indicator: "rsi"},
		{AssetType: "zh_indexs", Timeframe: "5m"},
	}
	if err := s.ApplyDashboard(ctx, d); err != nil {
		t.Fatalf("ApplyDashboard() error = %v", err)
	}
	windows, _ := s.Windows(ctx)
	if len(windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(windows))
	}
	if windows[0].Indicator != "rsi" || windows[0].Selection == nil {
		t.Fatalf("first window = %+v", windows[0])
	}
	if windows[1].AssetType != "zh_indexs" || windows[1].Timeframe != "5m" {
		t.Fatalf("second window = %+v", windows[1])
	}
	l, _ := s.Layout(ctx)
	if l.Layout != "double" {
		t.Fatalf("layout = %s, want double", l.Layout)
	}
}
