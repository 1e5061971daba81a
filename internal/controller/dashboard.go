package controller

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/chartdeck/internal/config"
	"github.com/dgnsrekt/chartdeck/internal/layout"
)

// ApplyDashboard brings the session to the dashboard file's starting state:
// layout and viewport, then per-window presets in slot order. A preset that
// fails is logged and skipped.
func (s *Session) ApplyDashboard(ctx context.Context, d *config.Dashboard) error {
	if _, err := s.SetViewport(ctx, d.Viewport.Width, d.Viewport.Height); err != nil {
		slog.Warn("dashboard viewport ignored", "error", err)
	}

	name := d.Layout
	if l, ok := layout.Parse(name); !ok || l.MaxWindows() < len(d.Windows) {
		name = fitLayout(len(d.Windows), name)
	}
	res, err := s.ApplyLayout(ctx, name)
	if err != nil {
		return err
	}

	ids, err := s.windowIDs(ctx)
	if err != nil {
		return err
	}
	for i, preset := range d.Windows {
		if i >= len(ids) {
			break
		}
		s.applyPreset(ctx, ids[i], preset)
	}

	if d.Panel.Visible {
		if _, err := s.SetPanelVisible(ctx, true); err != nil {
			return err
		}
	}
	slog.Info("dashboard applied", "layout", res.Layout, "presets", len(d.Windows))
	return nil
}

// fitLayout returns the smallest layout holding n windows.
func fitLayout(n int, requested string) string {
	for _, l := range layout.All {
		if l.MaxWindows() >= n {
			if requested != "" {
				slog.Warn("dashboard layout too small for presets", "layout", requested, "using", l)
			}
			return string(l)
		}
	}
	return string(layout.SixPane)
}

func (s *Session) windowIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := s.do(ctx, func() error {
		ids = s.windows.IDs()
		return nil
	})
	return ids, err
}

func (s *Session) applyPreset(ctx context.Context, id int, p config.WindowPreset) {
	if p.AssetType != "" {
		if _, err := s.ChangeAssetType(ctx, id, p.AssetType); err != nil {
			slog.Warn("preset asset type skipped", "window_id", id, "error", err)
		}
	}
	if p.Timeframe != "" {
		if _, err := s.ChangeTimeframe(ctx, id, p.Timeframe); err != nil {
			slog.Warn("preset timeframe skipped", "window_id", id, "error", err)
		}
	}
	if !p.Loadable() {
		return
	}
	if _, err := s.LoadData(ctx, id, p.Symbol, p.StartDate, p.EndDate); err != nil {
		slog.Warn("preset load skipped", "window_id", id, "symbol", p.Symbol, "error", err)
		return
	}
	if p.Indicator != "" {
		if _, err := s.SetIndicator(ctx, id, p.Indicator); err != nil {
			slog.Warn("preset indicator skipped", "window_id", id, "error", err)
		}
	}
}
