package workspace

import (
	"fmt"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/syncgroup"
)

// Selection is the symbol and date range a window was last asked to load.
type Selection struct {
	Symbol string `json:"symbol"`
	Start  string `json:"start_date"`
	End    string `json:"end_date"`
}

// Window is one price/volume/indicator chart unit.
type Window struct {
	id        int
	assetType AssetType
	symbol    string
	timeframe Timeframe
	indicator Indicator
	symbols   []string
	selection *Selection
	status    string

	price     *chart.Pane
	volume    *chart.Pane
	indicPane *chart.Pane
	group     *syncgroup.Group

	// Generation counters per fetch slot; a continuation applies only if its
	// generation is still current.
	symbolsGen uint64
	dataGen    uint64
	indGen     uint64
}

func (w *Window) ID() int { return w.id }

func (w *Window) Panes() []*chart.Pane {
	return []*chart.Pane{w.price, w.volume, w.indicPane}
}

func (w *Window) Pane(role chart.Role) *chart.Pane {
	switch role {
	case chart.RolePrice:
		return w.price
	case chart.RoleVolume:
		return w.volume
	case chart.RoleIndicator:
		return w.indicPane
	}
	return nil
}

func (w *Window) Group() *syncgroup.Group { return w.group }

func paneID(windowID int, role chart.Role) string {
	return fmt.Sprintf("w%d/%s", windowID, role)
}

// WindowInfo is a read-only view of a window.
type WindowInfo struct {
	ID        int              `json:"id"`
	AssetType AssetType        `json:"asset_type"`
	Symbol    string           `json:"symbol"`
	Timeframe Timeframe        `json:"timeframe"`
	Indicator Indicator        `json:"indicator,omitempty"`
	Symbols   []string         `json:"symbols"`
	Selection *Selection       `json:"selection,omitempty"`
	Status    string           `json:"status"`
	Panes     []chart.PaneInfo `json:"panes"`
	SyncState string           `json:"sync_state"`
	Sync      syncgroup.Stats  `json:"sync"`
}

func (w *Window) Info() WindowInfo {
	info := WindowInfo{
		ID:        w.id,
		AssetType: w.assetType,
		Symbol:    w.symbol,
		Timeframe: w.timeframe,
		Indicator: w.indicator,
		Symbols:   append([]string{}, w.symbols...),
		Status:    w.status,
		SyncState: w.group.State().String(),
		Sync:      w.group.Stats(),
	}
	if w.selection != nil {
		sel := *w.selection
		info.Selection = &sel
	}
	for _, p := range w.Panes() {
		info.Panes = append(info.Panes, p.Info())
	}
	return info
}
