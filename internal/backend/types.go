package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// DateLayout is the date format the backend accepts in query parameters.
const DateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DateLayout,
}

// Timestamp decodes backend time values: epoch seconds as a number or numeric
// string, or a date/datetime string interpreted as UTC.
type Timestamp chart.Time

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("timestamp is null")
	}
	if data[0] != '"' {
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("timestamp %s: %w", data, err)
		}
		*ts = Timestamp(int64(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	*ts = Timestamp(t)
	return nil
}

// ParseTime converts a backend time string to epoch seconds.
func ParseTime(s string) (chart.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return chart.Time(n), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return chart.Time(t.Unix()), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

type Bar struct {
	Time   Timestamp `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type BarsResponse struct {
	Bars []Bar `json:"bars"`
}

// ChartBars converts backend bars to chart bars.
func ChartBars(in []Bar) []chart.Bar {
	out := make([]chart.Bar, 0, len(in))
	for _, b := range in {
		out = append(out, chart.Bar{
			Time:   chart.Time(b.Time),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out
}

type IndicatorResponse struct {
	Indicator json.RawMessage `json:"indicator"`
}

type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

// ProjectSummary is the backtest summary shown in the project panel.
type ProjectSummary struct {
	Status              string     `json:"status"`
	TradesCount         int        `json:"trades_count"`
	SharpeRatio         float64    `json:"sharpe_ratio"`
	WinRate             float64    `json:"win_rate"`
	InitialCapital      float64    `json:"initial_capital"`
	TotalPnL            float64    `json:"total_pnl"`
	FinalBalance        float64    `json:"final_balance"`
	MaxDrawdown         float64    `json:"max_drawdown"`
	MaxDrawdownDuration float64    `json:"max_drawdown_duration"`
	StartTime           *Timestamp `json:"start_time"`
	EndTime             *Timestamp `json:"end_time"`
}

type ProjectResponse struct {
	Project *ProjectSummary `json:"project"`
}

type Trade struct {
	Time      Timestamp `json:"time"`
	Direction string    `json:"direction"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
}

// StrategyData holds parallel arrays keyed by Time.
type StrategyData struct {
	Time     []Timestamp `json:"time"`
	Balance  []float64   `json:"balance"`
	Drawdown []float64   `json:"drawdown"`
	DailyPnL []float64   `json:"daily_pnl"`
	Trades   []Trade     `json:"trades"`
}

type StrategyDataResponse struct {
	StrategyData StrategyData `json:"strategy_data"`
}

type TradedSymbolsResponse struct {
	Symbols []string `json:"trades_symbol_list"`
}

type TradesResponse struct {
	Trades []Trade `json:"trades"`
}

type RunProjectRequest struct {
	ProjectName string `json:"project_name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// ActionResponse is returned by mutating endpoints.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}
