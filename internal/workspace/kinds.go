package workspace

import (
	"strings"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

type AssetType string

const (
	AssetStocks  AssetType = "zh_stocks"
	AssetIndexes AssetType = "zh_indexs"
)

func ParseAssetType(s string) (AssetType, error) {
	switch a := AssetType(strings.TrimSpace(s)); a {
	case AssetStocks, AssetIndexes:
		return a, nil
	}
	return "", apperr.Validation("unknown asset type " + s)
}

type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
	Timeframe5m Timeframe = "5m"
	Timeframe1d Timeframe = "1d"

	DefaultTimeframe = Timeframe1d
)

// ParseTimeframe accepts the empty string as the default timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.TrimSpace(s)); tf {
	case "":
		return DefaultTimeframe, nil
	case Timeframe1m, Timeframe5m, Timeframe1d:
		return tf, nil
	}
	return "", apperr.Validation("unknown timeframe " + s)
}

// Indicator is the indicator shown in a window's indicator pane. The zero
// value shows the moving-average bundle.
type Indicator string

const (
	IndicatorNone Indicator = ""
	IndicatorRSI  Indicator = "rsi"
	IndicatorMACD Indicator = "macd"
)

func ParseIndicator(s string) (Indicator, error) {
	switch ind := Indicator(strings.ToLower(strings.TrimSpace(s))); ind {
	case IndicatorNone, IndicatorRSI, IndicatorMACD:
		return ind, nil
	case "ma", "all_ma", "none":
		return IndicatorNone, nil
	}
	return "", apperr.Validation("unknown indicator " + s)
}

// SeriesKey names every series the indicator pane can hold.
type SeriesKey string

const (
	SeriesMA5           SeriesKey = "ma5"
	SeriesMA10          SeriesKey = "ma10"
	SeriesMA20          SeriesKey = "ma20"
	SeriesMA60          SeriesKey = "ma60"
	SeriesRSI           SeriesKey = "rsi"
	SeriesMACD          SeriesKey = "macd"
	SeriesMACDSignal    SeriesKey = "macd_signal"
	SeriesMACDHistogram SeriesKey = "macd_histogram"
)

var allSeriesKeys = []SeriesKey{
	SeriesMA5, SeriesMA10, SeriesMA20, SeriesMA60,
	SeriesRSI, SeriesMACD, SeriesMACDSignal, SeriesMACDHistogram,
}

func (k SeriesKey) Color() string {
	switch k {
	case SeriesMA5:
		return "#ff9800"
	case SeriesMA10:
		return "#ff5722"
	case SeriesMA20:
		return "#ff9800"
	case SeriesMA60:
		return "#ffc107"
	case SeriesRSI:
		return "#9c27b0"
	case SeriesMACD:
		return "#2196f3"
	case SeriesMACDSignal:
		return "#ff5722"
	case SeriesMACDHistogram:
		return "#4caf50"
	}
	return ""
}

func (k SeriesKey) Title() string {
	switch k {
	case SeriesMA5:
		return "MA5"
	case SeriesMA10:
		return "MA10"
	case SeriesMA20:
		return "MA20"
	case SeriesMA60:
		return "MA60"
	case SeriesRSI:
		return "RSI(14)"
	case SeriesMACD:
		return "MACD"
	case SeriesMACDSignal:
		return "MACD Signal"
	case SeriesMACDHistogram:
		return "MACD Histogram"
	}
	return ""
}

func (k SeriesKey) Kind() chart.SeriesKind {
	if k == SeriesMACDHistogram {
		return chart.KindHistogram
	}
	return chart.KindLine
}

func (k SeriesKey) series(points []chart.Point) chart.Series {
	return chart.Series{
		Name:   string(k),
		Kind:   k.Kind(),
		Title:  k.Title(),
		Color:  k.Color(),
		Points: points,
	}
}

// Candle and volume colors: up bars red, down bars green.
const (
	ColorUp   = "#ef5350"
	ColorDown = "#26a69a"
)

const (
	SeriesCandles = "candles"
	SeriesVolume  = "volume"
)

func CandleSeries(bars []chart.Bar) chart.Series {
	return chart.Series{Name: SeriesCandles, Kind: chart.KindCandlestick, Title: "Price", Bars: bars}
}

// VolumeSeries colors each bar by close >= open.
func VolumeSeries(bars []chart.Bar) chart.Series {
	pts := make([]chart.Point, 0, len(bars))
	for _, b := range bars {
		color := ColorDown
		if b.Close >= b.Open {
			color = ColorUp
		}
		pts = append(pts, chart.Point{Time: b.Time, Value: b.Volume, Color: color})
	}
	return chart.Series{Name: SeriesVolume, Kind: chart.KindHistogram, Title: "Volume", Points: pts}
}
