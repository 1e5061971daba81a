package cdpsurface

import (
	"errors"

	"github.com/dgnsrekt/chartdeck/internal/chart"
)

var ErrReleased = errors.New("cdpsurface: surface released")

type executor interface {
	exec(paneID, script string)
}

// Surface forwards pane mutations to a chart in the deck page. Calls are
// queued and never block the frame loop; evaluation failures are logged by
// the Page. Inbound notifications are delivered on the frame loop.
type Surface struct {
	chart.Hub

	paneID    string
	exec      executor
	onRelease func()
	released  bool

	// Last programmatic values, used to drop the page's echo of them.
	lastRange *chart.Range
	lastCross *chart.Time
}

func (s *Surface) PaneID() string { return s.paneID }

func (s *Surface) send(method string, args ...any) error {
	if s.released {
		return ErrReleased
	}
	s.exec.exec(s.paneID, paneCall(method, s.paneID, args...))
	return nil
}

func (s *Surface) SetSeries(series chart.Series) error {
	return s.send("setSeries", series)
}

func (s *Surface) RemoveSeries(name string) error {
	return s.send("removeSeries", name)
}

func (s *Surface) SetVisibleRange(r chart.Range) error {
	if err := s.send("setRange", r); err != nil {
		return err
	}
	v := r
	s.lastRange = &v
	return nil
}

func (s *Surface) SetCrosshair(t chart.Time) error {
	if err := s.send("setCrosshair", t); err != nil {
		return err
	}
	v := t
	s.lastCross = &v
	return nil
}

func (s *Surface) ClearCrosshair() error {
	s.lastCross = nil
	return s.send("clearCrosshair")
}

func (s *Surface) SetMarkers(series string, markers []chart.Marker) error {
	if markers == nil {
		markers = []chart.Marker{}
	}
	return s.send("setMarkers", series, markers)
}

func (s *Surface) Resize(width, height int) error {
	return s.send("resize", chart.Size{Width: width, Height: height})
}

func (s *Surface) Release() error {
	if s.released {
		return nil
	}
	err := s.send("release")
	s.released = true
	if s.onRelease != nil {
		s.onRelease()
	}
	return err
}

func (s *Surface) deliverRange(r *chart.Range) {
	if s.released {
		return
	}
	if r != nil && s.lastRange != nil && *r == *s.lastRange {
		s.lastRange = nil
		return
	}
	s.EmitRange(r)
}

func (s *Surface) deliverCrosshair(t *chart.Time) {
	if s.released {
		return
	}
	if t != nil && s.lastCross != nil && *t == *s.lastCross {
		s.lastCross = nil
		return
	}
	s.EmitCrosshair(t)
}
