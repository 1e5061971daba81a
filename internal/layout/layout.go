// Package layout maps grid layouts to window counts, reconciles the window
// set when the layout changes and drives the relayout pass that follows.
package layout

import (
	"strconv"
	"strings"

	"github.com/dgnsrekt/chartdeck/internal/chart"
)

type Layout string

const (
	Single  Layout = "single"
	Double  Layout = "double"
	Quad    Layout = "quad"
	SixPane Layout = "six-pane"
)

// All lists the supported layouts in ascending size.
var All = []Layout{Single, Double, Quad, SixPane}

// Parse resolves a layout id or grid alias. Unknown values resolve to Single;
// ok reports whether the value was recognized.
func Parse(s string) (l Layout, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "1x1":
		return Single, true
	case "double", "1x2":
		return Double, true
	case "quad", "2x2":
		return Quad, true
	case "six-pane", "six", "2x3":
		return SixPane, true
	}
	return Single, false
}

// MaxWindows is the number of windows the layout shows.
func (l Layout) MaxWindows() int {
	switch l {
	case Single:
		return 1
	case Double:
		return 2
	case Quad:
		return 4
	case SixPane:
		return 6
	}
	return 1
}

// Grid returns the layout's rows and columns.
func (l Layout) Grid() (rows, cols int) {
	switch l {
	case Single:
		return 1, 1
	case Double:
		return 1, 2
	case Quad:
		return 2, 2
	case SixPane:
		return 2, 3
	}
	return 1, 1
}

// Tag is the grid class applied to the window container.
func (l Layout) Tag() string {
	rows, cols := l.Grid()
	return "layout-" + strconv.Itoa(rows) + "x" + strconv.Itoa(cols)
}

// Viewport is the size of the area holding the window grid.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Geometry derives pane sizes from the viewport.
type Geometry struct {
	Viewport     Viewport `json:"viewport"`
	HeaderHeight int      `json:"header_height"`
	StatusHeight int      `json:"status_height"`
	Gap          int      `json:"gap"`
}

// Share of a window's chart area given to each pane.
const (
	priceShare  = 60
	volumeShare = 20
)

// PaneSize returns the pixel size of a pane in any cell of layout l. Every
// cell of a grid has the same size.
func (g Geometry) PaneSize(l Layout, role chart.Role) chart.Size {
	rows, cols := l.Grid()
	cellW := (g.Viewport.Width - g.Gap*(cols-1)) / cols
	cellH := (g.Viewport.Height - g.Gap*(rows-1)) / rows
	chartH := cellH - g.HeaderHeight - g.StatusHeight
	if cellW < 0 {
		cellW = 0
	}
	if chartH < 0 {
		chartH = 0
	}

	priceH := chartH * priceShare / 100
	volumeH := chartH * volumeShare / 100
	var h int
	switch role {
	case chart.RolePrice:
		h = priceH
	case chart.RoleVolume:
		h = volumeH
	case chart.RoleIndicator:
		h = chartH - priceH - volumeH
	case chart.RoleMetric:
		h = chartH
	}
	return chart.Size{Width: cellW, Height: h}
}
