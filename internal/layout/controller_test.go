package layout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/surface"
	"github.com/dgnsrekt/chartdeck/internal/workspace"
)

type emptyBackend struct{}

func (emptyBackend) Symbols(context.Context, string) ([]string, error) { return nil, nil }
func (emptyBackend) Bars(context.Context, string, string, string, string) ([]chart.Bar, error) {
	return nil, nil
}
func (emptyBackend) Indicator(context.Context, string, string, string, string, string) (json.RawMessage, error) {
	return nil, nil
}

type silentNotifier struct{}

func (silentNotifier) Error(string) {}
func (silentNotifier) Info(string)  {}

func newController(t *testing.T) (*Controller, *workspace.Manager, *frame.Manual) {
	t.Helper()
	sched := frame.NewManual()
	mgr := workspace.NewManager(sched, emptyBackend{}, silentNotifier{}, surface.Factory{}, workspace.Options{})
	c, err := New(sched, mgr, Options{
		Geometry: Geometry{Viewport: Viewport{Width: 1200, Height: 800}, HeaderHeight: 40, StatusHeight: 20, Gap: 0},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, mgr, sched
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Layout
		wantOK bool
	}{
		{"single", Single, true},
		{"1x2", Double, true},
		{"QUAD", Quad, true},
		{"2x3", SixPane, true},
		{"six-pane", SixPane, true},
		{"3x3", Single, false},
		{"", Single, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("Parse(%q) = %s,%v want %s,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMaxWindowsContract(t *testing.T) {
	want := map[Layout]int{Single: 1, Double: 2, Quad: 4, SixPane: 6}
	for _, l := range All {
		if got := l.MaxWindows(); got != want[l] {
			t.Fatalf("%s.MaxWindows() = %d, want %d", l, got, want[l])
		}
	}
}

func TestApplyLayoutReconcilesExactly(t *testing.T) {
	c, mgr, _ := newController(t)
	sequence := []string{"quad", "single", "six-pane", "double", "quad", "single"}
	for _, name := range sequence {
		if _, err := c.ApplyLayout(name); err != nil {
			t.Fatalf("ApplyLayout(%s) error = %v", name, err)
		}
		l, _ := Parse(name)
		if got, want := mgr.Count(), l.MaxWindows(); got != want {
			t.Fatalf("after %s: windows = %d, want %d", name, got, want)
		}
	}
}

func TestShrinkRemovesHighestIDsFirst(t *testing.T) {
	c, mgr, _ := newController(t)
	if _, err := c.ApplyLayout("quad"); err != nil {
		t.Fatalf("ApplyLayout(quad) error = %v", err)
	}
	res, err := c.ApplyLayout("double")
	if err != nil {
		t.Fatalf("ApplyLayout(double) error = %v", err)
	}
	ids := mgr.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids = %v, want [1 2]", ids)
	}
	if len(res.Destroyed) != 2 || res.Destroyed[0] != 4 || res.Destroyed[1] != 3 {
		t.Fatalf("destroyed = %v, want [4 3]", res.Destroyed)
	}
	if res.Previous != Quad || c.Tag() != "layout-1x2" {
		t.Fatalf("previous=%s tag=%s", res.Previous, c.Tag())
	}
	if got, want := res.RemovedTag, "layout-2x2"; got != want {
		t.Fatalf("removed tag = %q, want %q", got, want)
	}

	res, err = c.ApplyLayout("double")
	if err != nil {
		t.Fatalf("ApplyLayout(double) again error = %v", err)
	}
	if res.RemovedTag != "" {
		t.Fatalf("removed tag = %q for an unchanged layout", res.RemovedTag)
	}
}

func TestRelayoutRunsAfterSettleDelay(t *testing.T) {
	c, mgr, sched := newController(t)
	if _, err := c.ApplyLayout("quad"); err != nil {
		t.Fatalf("ApplyLayout() error = %v", err)
	}
	sched.Settle()
	if c.Relayouts() != 0 {
		t.Fatal("relayout ran before settle delay")
	}
	sched.Advance(DefaultSettleDelay)
	if c.Relayouts() != 1 {
		t.Fatalf("relayouts = %d, want 1", c.Relayouts())
	}

	w, _ := mgr.Window(mgr.IDs()[3])
	// 2x2 grid of 1200x800: cells 600x400, chart area 340.
	if got, want := w.Pane(chart.RolePrice).Size(), (chart.Size{Width: 600, Height: 204}); got != want {
		t.Fatalf("price size = %v, want %v", got, want)
	}
	if got, want := w.Pane(chart.RoleVolume).Size(), (chart.Size{Width: 600, Height: 68}); got != want {
		t.Fatalf("volume size = %v, want %v", got, want)
	}
	if got, want := w.Pane(chart.RoleIndicator).Size(), (chart.Size{Width: 600, Height: 68}); got != want {
		t.Fatalf("indicator size = %v, want %v", got, want)
	}
}

func TestSameLayoutOnlyRelayouts(t *testing.T) {
	c, mgr, sched := newController(t)
	_, _ = c.ApplyLayout("double")
	sched.Advance(DefaultSettleDelay)
	before := mgr.IDs()

	res, err := c.ApplyLayout("double")
	if err != nil {
		t.Fatalf("ApplyLayout() error = %v", err)
	}
	if len(res.Created) != 0 || len(res.Destroyed) != 0 {
		t.Fatalf("result = %+v, want no changes", res)
	}
	after := mgr.IDs()
	if len(after) != len(before) || after[0] != before[0] || after[1] != before[1] {
		t.Fatalf("ids changed: %v -> %v", before, after)
	}
	sched.Advance(DefaultSettleDelay)
	if c.Relayouts() != 2 {
		t.Fatalf("relayouts = %d, want 2", c.Relayouts())
	}
}

func TestSettleDelayMustExceedFrame(t *testing.T) {
	sched := frame.NewManual()
	mgr := workspace.NewManager(sched, emptyBackend{}, silentNotifier{}, surface.Factory{}, workspace.Options{})
	_, err := New(sched, mgr, Options{SettleDelay: 10 * time.Millisecond, FrameInterval: 16 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error for settle delay shorter than a frame")
	}
}

func TestSetViewportResizesImmediately(t *testing.T) {
	c, mgr, _ := newController(t)
	_, _ = c.ApplyLayout("single")
	c.SetViewport(Viewport{Width: 1000, Height: 560})

	w, _ := mgr.Window(mgr.IDs()[0])
	if got, want := w.Pane(chart.RolePrice).Size(), (chart.Size{Width: 1000, Height: 300}); got != want {
		t.Fatalf("price size = %v, want %v", got, want)
	}
}
