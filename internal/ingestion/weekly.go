package ingestion

import (
	"sort"
	"time"

	"rotation-lab/internal/domain"
)

// ResampleWeekly rolls daily bars up into weekly bars, one per
// instrument per calendar week. The weekly bar is dated at the last
// trading day actually present in that week, so holiday-shortened
// weeks stay aligned with what the market traded. Open comes from the
// first day, close from the last, high/low span the week, and volume
// sums.
func ResampleWeekly(daily []domain.PriceBar) []domain.PriceBar {
	if len(daily) == 0 {
		return nil
	}

	sorted := make([]domain.PriceBar, len(daily))
	copy(sorted, daily)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].InstrumentID != sorted[j].InstrumentID {
			return sorted[i].InstrumentID < sorted[j].InstrumentID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var weekly []domain.PriceBar
	var cur *domain.PriceBar
	var curKey weekKey

	for _, b := range sorted {
		k := keyFor(b)
		if cur == nil || k != curKey {
			if cur != nil {
				weekly = append(weekly, *cur)
			}
			bar := b
			cur = &bar
			curKey = k
			continue
		}

		// Same instrument and week: extend the open bar.
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Date = b.Date
		cur.Volume += b.Volume
	}
	if cur != nil {
		weekly = append(weekly, *cur)
	}

	return weekly
}

type weekKey struct {
	instrumentID string
	year         int
	week         int
}

func keyFor(b domain.PriceBar) weekKey {
	year, week := b.Date.UTC().ISOWeek()
	return weekKey{b.InstrumentID, year, week}
}

// WeekStart returns the Monday of the bar's ISO week, useful for
// aligning reports.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
