package performance

import (
	"time"

	"github.com/dgnsrekt/chartdeck/internal/backend"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

// shiftMonths moves t by delta calendar months, clamping the day to the
// length of the target month (Mar 31 - 1 month = Feb 28).
func shiftMonths(t time.Time, delta int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// displayWindow returns the bar range shown for a traded symbol: one month
// either side of [start, end], as backend date strings.
func displayWindow(start, end chart.Time) (string, string) {
	s := time.Unix(int64(start), 0).UTC()
	e := time.Unix(int64(end), 0).UTC()
	return shiftMonths(s, -1).Format(backend.DateLayout), shiftMonths(e, 1).Format(backend.DateLayout)
}
