package syncgroup

import (
	"testing"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
	"github.com/dgnsrekt/chartdeck/internal/surface"
)

type fixture struct {
	sched    *frame.Manual
	group    *Group
	panes    []*chart.Pane
	surfaces []*surface.Memory
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	f := &fixture{sched: frame.NewManual()}
	for _, id := range ids {
		s := surface.NewMemory(id, nil)
		f.surfaces = append(f.surfaces, s)
		f.panes = append(f.panes, chart.NewPane(id, chart.RolePrice, s))
	}
	f.group = New("test", f.sched, f.panes...)
	f.group.Wire()
	return f
}

func rangeCalls(s *surface.Memory) []chart.Range {
	var out []chart.Range
	for _, c := range s.Calls() {
		if c.Op == surface.OpVisibleRange {
			out = append(out, *c.Range)
		}
	}
	return out
}

func TestRangeChangeNeverEchoesToOrigin(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	r := chart.Range{From: 100, To: 200}

	f.surfaces[0].EmitRange(&r)

	if got := rangeCalls(f.surfaces[0]); len(got) != 0 {
		t.Fatalf("origin received %d setVisibleRange calls, want 0", len(got))
	}
	for i := 1; i < 3; i++ {
		got := rangeCalls(f.surfaces[i])
		if len(got) != 1 || got[0] != r {
			t.Fatalf("pane %d range calls = %v, want [%v]", i, got, r)
		}
	}
	if got, want := f.group.State(), Propagating; got != want {
		t.Fatalf("state = %v, want %v", got, want)
	}
	st := f.group.Stats()
	if st.Propagations != 1 {
		t.Fatalf("propagations = %d, want 1", st.Propagations)
	}
	// The two siblings echo the programmatic range back.
	if st.DroppedEchoes != 2 {
		t.Fatalf("dropped echoes = %d, want 2", st.DroppedEchoes)
	}
}

func TestSecondEventBeforeSettleIsIgnored(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	first := chart.Range{From: 1, To: 10}
	second := chart.Range{From: 50, To: 60}

	f.surfaces[0].EmitRange(&first)
	f.surfaces[1].EmitRange(&second)

	if got := rangeCalls(f.surfaces[0]); len(got) != 0 {
		t.Fatalf("pane a got %v, want nothing", got)
	}
	if got := rangeCalls(f.surfaces[2]); len(got) != 1 || got[0] != first {
		t.Fatalf("pane c got %v, want only %v", got, first)
	}
	if got := f.group.Stats().Propagations; got != 1 {
		t.Fatalf("propagations = %d, want 1", got)
	}

	f.sched.Frame()
	if got, want := f.group.State(), Idle; got != want {
		t.Fatalf("state after frame = %v, want %v", got, want)
	}

	f.surfaces[1].EmitRange(&second)
	if got := rangeCalls(f.surfaces[0]); len(got) != 1 || got[0] != second {
		t.Fatalf("pane a after settle got %v, want [%v]", got, second)
	}
}

func TestNilRangeIsIgnored(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.surfaces[0].EmitRange(nil)
	if got := f.group.State(); got != Idle {
		t.Fatalf("state = %v, want idle", got)
	}
	if got := rangeCalls(f.surfaces[1]); len(got) != 0 {
		t.Fatalf("pane b got %v", got)
	}
}

func TestCrosshairLeaveClearsSiblings(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	ts := chart.Time(1700000000)

	f.surfaces[2].EmitCrosshair(&ts)
	for i, p := range f.panes {
		got, ok := p.Crosshair()
		if !ok || got != ts {
			t.Fatalf("pane %d crosshair = %v,%v want %v", i, got, ok, ts)
		}
	}
	if got := f.surfaces[2].CountOp(surface.OpCrosshair); got != 0 {
		t.Fatalf("origin received %d crosshair sets", got)
	}

	f.surfaces[2].EmitCrosshair(nil)
	for i, p := range f.panes {
		if _, ok := p.Crosshair(); ok {
			t.Fatalf("pane %d still has a crosshair", i)
		}
	}
	for _, i := range []int{0, 1, 3} {
		if got := f.surfaces[i].CountOp(surface.OpClearCrosshair); got != 1 {
			t.Fatalf("pane %d clear calls = %d, want 1", i, got)
		}
	}
}

func TestWireIsIdempotent(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.group.Wire()
	f.group.Wire()

	if got := f.panes[0].RangeSubscribers(); got != 1 {
		t.Fatalf("range subscribers = %d, want 1", got)
	}
	r := chart.Range{From: 1, To: 2}
	f.surfaces[0].EmitRange(&r)
	if got := rangeCalls(f.surfaces[1]); len(got) != 1 {
		t.Fatalf("pane b range calls = %d, want 1", len(got))
	}
}

func TestNotReadyMemberIsGatedBothWays(t *testing.T) {
	f := newFixture(t, "traded", "balance", "drawdown")
	f.group.SetReady("traded", false)

	r := chart.Range{From: 1, To: 2}
	f.surfaces[1].EmitRange(&r)
	if got := rangeCalls(f.surfaces[0]); len(got) != 0 {
		t.Fatalf("not-ready pane received %v", got)
	}
	if got := rangeCalls(f.surfaces[2]); len(got) != 1 {
		t.Fatalf("ready sibling received %d calls, want 1", len(got))
	}
	f.sched.Frame()

	r2 := chart.Range{From: 3, To: 4}
	f.surfaces[0].EmitRange(&r2)
	if got := f.group.Stats().Propagations; got != 1 {
		t.Fatalf("not-ready origin propagated: propagations = %d", got)
	}

	f.group.SetReady("traded", true)
	f.surfaces[0].EmitRange(&r2)
	if got := f.group.Stats().Propagations; got != 2 {
		t.Fatalf("propagations = %d, want 2", got)
	}
}

func TestDegenerateGroupDoesNotPropagate(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.panes[1].Destroy()

	r := chart.Range{From: 1, To: 2}
	f.surfaces[0].EmitRange(&r)
	if got := f.group.Stats().Propagations; got != 0 {
		t.Fatalf("propagations = %d, want 0", got)
	}
	if got := f.group.State(); got != Idle {
		t.Fatalf("state = %v, want idle", got)
	}
}

func TestAddedMemberJoinsWiredGroup(t *testing.T) {
	f := newFixture(t, "a", "b")
	s := surface.NewMemory("c", nil)
	p := chart.NewPane("c", chart.RoleMetric, s)
	f.group.Add(p)

	r := chart.Range{From: 5, To: 9}
	s.EmitRange(&r)
	if got := rangeCalls(f.surfaces[0]); len(got) != 1 || got[0] != r {
		t.Fatalf("pane a got %v, want [%v]", got, r)
	}
}

func TestMemberRemovedMidPropagationIsSkipped(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	// Removing c while b is being updated must not reach c.
	f.panes[1].OnVisibleRangeChange(func(*chart.Range) {
		f.group.Remove("c")
	})

	r := chart.Range{From: 1, To: 2}
	f.surfaces[0].EmitRange(&r)

	if got := rangeCalls(f.surfaces[2]); len(got) != 0 {
		t.Fatalf("removed pane received %v", got)
	}
	if got := len(f.group.Panes()); got != 2 {
		t.Fatalf("members = %d, want 2", got)
	}
}
