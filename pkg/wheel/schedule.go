package wheel

import (
	"fmt"
	"sort"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
)

// Week is one scheduled Monday-Friday cycle resolved against the bar series.
type Week struct {
	Monday     time.Time
	Friday     time.Time
	entry      int
	resolution int
}

// Schedule lists every Monday m with start <= m and m+4 days <= end.
func Schedule(start, end time.Time) []time.Time {
	start, end = models.TruncateDay(start), models.TruncateDay(end)

	offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
	monday := start.AddDate(0, 0, offset)

	var mondays []time.Time
	for !monday.AddDate(0, 0, 4).After(end) {
		mondays = append(mondays, monday)
		monday = monday.AddDate(0, 0, 7)
	}
	return mondays
}

// SessionOpen is the regular-session open on day.
func SessionOpen(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, consts.SessionOpenHour, consts.SessionOpenMinute, 0, 0, time.UTC)
}

// SessionClose is the regular-session close on day.
func SessionClose(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, consts.SessionCloseHour, consts.SessionCloseMinute, 0, 0, time.UTC)
}

// sortBars returns a date-ordered copy so callers' slices are never reordered.
func sortBars(bars []models.PriceBar) []models.PriceBar {
	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// locateWeek finds the first and last sessions of the week starting on monday.
func locateWeek(bars []models.PriceBar, monday time.Time) (Week, error) {
	w := Week{Monday: monday, Friday: monday.AddDate(0, 0, 4)}

	first := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Day().Before(w.Monday)
	})
	if first == len(bars) || bars[first].Day().After(w.Friday) {
		return w, fmt.Errorf("%w: no bars in week of %s", ErrMissingPriceData, monday.Format(consts.DateLayout))
	}

	last := first
	for last+1 < len(bars) && !bars[last+1].Day().After(w.Friday) {
		last++
	}

	if !bars[first].Open.IsPositive() {
		return w, fmt.Errorf("%w: non-positive open on %s", ErrMissingPriceData, bars[first].Day().Format(consts.DateLayout))
	}
	if !bars[last].Close.IsPositive() {
		return w, fmt.Errorf("%w: non-positive close on %s", ErrMissingPriceData, bars[last].Day().Format(consts.DateLayout))
	}

	w.entry, w.resolution = first, last
	return w, nil
}

// closesBefore returns the closes strictly before index i.
func closesBefore(bars []models.PriceBar, i int) []float64 {
	closes := make([]float64, 0, i)
	for _, b := range bars[:i] {
		closes = append(closes, b.Close.InexactFloat64())
	}
	return closes
}
