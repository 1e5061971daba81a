package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxWindows is the largest window count any layout shows.
const MaxWindows = 6

// WindowPreset describes a window to populate at startup.
type WindowPreset struct {
	AssetType string `yaml:"asset_type"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Indicator string `yaml:"indicator"`
}

// Loadable reports whether the preset carries a complete data selection.
func (w WindowPreset) Loadable() bool {
	return w.Symbol != "" && w.StartDate != "" && w.EndDate != ""
}

type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type PanelConfig struct {
	Width        int  `yaml:"width"`
	TradedHeight int  `yaml:"traded_height"`
	MetricHeight int  `yaml:"metric_height"`
	Visible      bool `yaml:"visible"`
}

// Dashboard is the YAML file of dashboard defaults.
type Dashboard struct {
	Layout           string         `yaml:"layout"`
	Viewport         ViewportConfig `yaml:"viewport"`
	HeaderHeight     int            `yaml:"header_height"`
	StatusHeight     int            `yaml:"status_height"`
	Gap              int            `yaml:"gap"`
	DefaultTimeframe string         `yaml:"default_timeframe"`
	TradedAssetType  string         `yaml:"traded_asset_type"`
	Panel            PanelConfig    `yaml:"panel"`
	Windows          []WindowPreset `yaml:"windows"`
}

// DefaultDashboard is used when no dashboard file exists.
func DefaultDashboard() *Dashboard {
	return &Dashboard{
		Layout:           "single",
		Viewport:         ViewportConfig{Width: 1600, Height: 900},
		HeaderHeight:     40,
		StatusHeight:     24,
		Gap:              4,
		DefaultTimeframe: "1d",
		TradedAssetType:  "zh_stocks",
		Panel:            PanelConfig{Width: 1200, TradedHeight: 320, MetricHeight: 160},
	}
}

// LoadDashboard reads a dashboard file over the defaults. A missing file
// yields an error wrapping os.ErrNotExist; callers fall back to
// DefaultDashboard in that case.
func LoadDashboard(path string) (*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dashboard config: %w", err)
	}
	d := DefaultDashboard()
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("dashboard config: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("dashboard config: %w", err)
	}
	return d, nil
}

// LoadDashboardOrDefault is LoadDashboard with the missing-file fallback.
func LoadDashboardOrDefault(path string) (*Dashboard, error) {
	d, err := LoadDashboard(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultDashboard(), nil
	}
	return d, err
}

func (d *Dashboard) validate() error {
	if d.Viewport.Width < 0 || d.Viewport.Height < 0 {
		return fmt.Errorf("viewport must not be negative")
	}
	if d.HeaderHeight < 0 || d.StatusHeight < 0 || d.Gap < 0 {
		return fmt.Errorf("header_height, status_height and gap must not be negative")
	}
	if len(d.Windows) > MaxWindows {
		return fmt.Errorf("at most %d windows, got %d", MaxWindows, len(d.Windows))
	}
	for i, w := range d.Windows {
		if (w.StartDate == "") != (w.EndDate == "") {
			return fmt.Errorf("windows[%d]: start_date and end_date go together", i)
		}
	}
	return nil
}
