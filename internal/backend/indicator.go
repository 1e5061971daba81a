package backend

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// Indicator names accepted by the indicators endpoint.
const (
	IndicatorAllMA = "all_ma"
	IndicatorRSI   = "rsi"
	IndicatorMACD  = "macd"
)

type point struct {
	Time  Timestamp `json:"time"`
	Value *float64  `json:"value"`
}

// DecodePoints decodes a single-series indicator payload. Points without a
// value (warm-up periods) are dropped.
func DecodePoints(raw json.RawMessage) ([]chart.Point, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.New(apperr.CodeDataShape, "indicator payload is empty", nil)
	}
	var in []point
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperr.New(apperr.CodeDataShape, "indicator payload is not a series", err)
	}
	return toChartPoints(in), nil
}

func toChartPoints(in []point) []chart.Point {
	out := make([]chart.Point, 0, len(in))
	for _, p := range in {
		if p.Value == nil {
			continue
		}
		out = append(out, chart.Point{Time: chart.Time(p.Time), Value: *p.Value})
	}
	return out
}

// MACD is the three-part MACD payload.
type MACD struct {
	MACD      []chart.Point
	Signal    []chart.Point
	Histogram []chart.Point
}

// DecodeMACD requires all three parts; a partial payload is a data-shape
// error.
func DecodeMACD(raw json.RawMessage) (MACD, error) {
	var in struct {
		MACD      *[]point `json:"macd"`
		Signal    *[]point `json:"signal"`
		Histogram *[]point `json:"histogram"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return MACD{}, apperr.New(apperr.CodeDataShape, "macd payload is not an object", err)
	}
	var missing []string
	if in.MACD == nil {
		missing = append(missing, "macd")
	}
	if in.Signal == nil {
		missing = append(missing, "signal")
	}
	if in.Histogram == nil {
		missing = append(missing, "histogram")
	}
	if len(missing) > 0 {
		return MACD{}, apperr.New(apperr.CodeDataShape, fmt.Sprintf("macd payload missing %v", missing), nil)
	}
	return MACD{
		MACD:      toChartPoints(*in.MACD),
		Signal:    toChartPoints(*in.Signal),
		Histogram: toChartPoints(*in.Histogram),
	}, nil
}

// MAKeys lists the moving averages of the all_ma bundle in display order.
var MAKeys = []string{"ma5", "ma10", "ma20", "ma60"}

// DecodeMABundle decodes the all_ma payload. Every key in MAKeys must be
// present.
func DecodeMABundle(raw json.RawMessage) (map[string][]chart.Point, error) {
	var in map[string][]point
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperr.New(apperr.CodeDataShape, "moving average payload is not an object", err)
	}
	out := make(map[string][]chart.Point, len(MAKeys))
	for _, k := range MAKeys {
		pts, ok := in[k]
		if !ok {
			return nil, apperr.New(apperr.CodeDataShape, "moving average payload missing "+k, nil)
		}
		out[k] = toChartPoints(pts)
	}
	return out, nil
}
