package chart

import "fmt"

// Time is a UTC timestamp in epoch seconds.
type Time int64

// Range is a closed time interval [From, To].
type Range struct {
	From Time `json:"from"`
	To   Time `json:"to"`
}

func (r Range) Contains(t Time) bool { return t >= r.From && t <= r.To }

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	out := r
	if o.From < out.From {
		out.From = o.From
	}
	if o.To > out.To {
		out.To = o.To
	}
	return out
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d]", r.From, r.To) }

// Role tags what a pane displays.
type Role string

const (
	RolePrice     Role = "price"
	RoleVolume    Role = "volume"
	RoleIndicator Role = "indicator"
	RoleMetric    Role = "performance-metric"
)

type SeriesKind string

const (
	KindCandlestick SeriesKind = "candlestick"
	KindLine        SeriesKind = "line"
	KindHistogram   SeriesKind = "histogram"
)

type Bar struct {
	Time   Time    `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type Point struct {
	Time  Time    `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// Series is one named dataset inside a pane. Candlestick series carry Bars,
// line and histogram series carry Points.
type Series struct {
	Name   string     `json:"name"`
	Kind   SeriesKind `json:"kind"`
	Title  string     `json:"title,omitempty"`
	Color  string     `json:"color,omitempty"`
	Bars   []Bar      `json:"bars,omitempty"`
	Points []Point    `json:"points,omitempty"`
}

// Len returns the number of data points in the series.
func (s Series) Len() int {
	if s.Kind == KindCandlestick {
		return len(s.Bars)
	}
	return len(s.Points)
}

func (s Series) timeAt(i int) Time {
	if s.Kind == KindCandlestick {
		return s.Bars[i].Time
	}
	return s.Points[i].Time
}

// Span returns the first and last timestamps. ok is false for empty series.
func (s Series) Span() (Range, bool) {
	n := s.Len()
	if n == 0 {
		return Range{}, false
	}
	return Range{From: s.timeAt(0), To: s.timeAt(n - 1)}, true
}

// Validate checks that timestamps are strictly increasing.
func (s Series) Validate() error {
	for i := 1; i < s.Len(); i++ {
		if s.timeAt(i) <= s.timeAt(i-1) {
			return fmt.Errorf("series %q: time %d at index %d does not follow %d", s.Name, s.timeAt(i), i, s.timeAt(i-1))
		}
	}
	return nil
}

func (s Series) clone() Series {
	out := s
	if s.Bars != nil {
		out.Bars = append([]Bar(nil), s.Bars...)
	}
	if s.Points != nil {
		out.Points = append([]Point(nil), s.Points...)
	}
	return out
}

type MarkerPosition string

const (
	AboveBar MarkerPosition = "aboveBar"
	BelowBar MarkerPosition = "belowBar"
)

type MarkerShape string

const (
	ArrowUp   MarkerShape = "arrowUp"
	ArrowDown MarkerShape = "arrowDown"
)

type Marker struct {
	Time     Time           `json:"time"`
	Position MarkerPosition `json:"position"`
	Shape    MarkerShape    `json:"shape"`
	Color    string         `json:"color"`
	Text     string         `json:"text"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
