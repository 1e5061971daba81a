package workspace

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// indicatorSeries decodes raw into the complete set of series the indicator
// pane should show. Nothing is returned unless every series is well formed.
func indicatorSeries(ind Indicator, raw json.RawMessage) ([]chart.Series, error) {
	var out []chart.Series
	switch ind {
	case IndicatorNone:
		bundle, err := backend.DecodeMABundle(raw)
		if err != nil {
			return nil, err
		}
		for _, k := range []SeriesKey{SeriesMA5, SeriesMA10, SeriesMA20, SeriesMA60} {
			out = append(out, k.series(bundle[string(k)]))
		}
	case IndicatorRSI:
		pts, err := backend.DecodePoints(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, SeriesRSI.series(pts))
	case IndicatorMACD:
		macd, err := backend.DecodeMACD(raw)
		if err != nil {
			return nil, err
		}
		out = append(out,
			SeriesMACD.series(macd.MACD),
			SeriesMACDSignal.series(macd.Signal),
			SeriesMACDHistogram.series(macd.Histogram),
		)
	default:
		return nil, fmt.Errorf("unsupported indicator %q", ind)
	}
	for _, s := range out {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// renderIndicator replaces the pane's series with ind's. The pane is cleared
// before decoding, so a malformed payload leaves it empty.
func renderIndicator(p *chart.Pane, ind Indicator, raw json.RawMessage) error {
	if err := p.ClearSeries(); err != nil {
		return err
	}
	series, err := indicatorSeries(ind, raw)
	if err != nil {
		return err
	}
	for _, s := range series {
		if err := p.SetSeries(s); err != nil {
			return err
		}
	}
	return nil
}
