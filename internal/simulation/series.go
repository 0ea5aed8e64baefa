package simulation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/indicators"
)

// ErrDataAlignment is fatal: the run aborts rather than trade on a
// corrupted period index.
var ErrDataAlignment = errors.New("data alignment error")

// SeriesSet holds the precomputed per-instrument indicator series
// aligned against the master period index. Built once per run; the
// period loop only reads it.
type SeriesSet struct {
	// Dates is the master period index, strictly ascending.
	Dates []time.Time

	// periods maps instrument_id -> date key -> that instrument's
	// period data. An instrument missing a date is simply absent.
	periods map[string]map[string]domain.PeriodData
}

// BuildSeriesSet validates bar history and precomputes indicator
// series for every instrument. Each instrument's bars must be strictly
// ascending by date with no duplicates; violations return
// ErrDataAlignment.
func BuildSeriesSet(instruments []domain.Instrument, bars map[string][]domain.PriceBar, cfg config.Config) (*SeriesSet, error) {
	set := &SeriesSet{
		periods: make(map[string]map[string]domain.PeriodData, len(instruments)),
	}

	dateSet := make(map[string]time.Time)

	for _, inst := range instruments {
		history := bars[inst.ID]
		if len(history) == 0 {
			return nil, fmt.Errorf("%w: instrument %s has no bars", ErrDataAlignment, inst.ID)
		}

		for i, b := range history {
			if b.InstrumentID != inst.ID {
				return nil, fmt.Errorf("%w: bar for %s found in %s history", ErrDataAlignment, b.InstrumentID, inst.ID)
			}
			if i > 0 && !history[i-1].Date.Before(b.Date) {
				return nil, fmt.Errorf("%w: instrument %s bars not strictly ascending at %s", ErrDataAlignment, inst.ID, domain.DateKey(b.Date))
			}
		}

		series := indicators.BuildSeries(history, inst.FairValue, cfg)
		byDate := make(map[string]domain.PeriodData, len(series))
		for _, p := range series {
			key := domain.DateKey(p.Bar.Date)
			byDate[key] = p
			if _, seen := dateSet[key]; !seen {
				dateSet[key] = p.Bar.Date.UTC()
			}
		}
		set.periods[inst.ID] = byDate
	}

	set.Dates = make([]time.Time, 0, len(dateSet))
	for _, d := range dateSet {
		set.Dates = append(set.Dates, d)
	}
	sort.Slice(set.Dates, func(i, j int) bool {
		return set.Dates[i].Before(set.Dates[j])
	})

	return set, nil
}

// At returns the instrument's period data for a date. ok is false when
// the instrument has no bar that period; the caller skips it.
func (s *SeriesSet) At(instrumentID string, date time.Time) (domain.PeriodData, bool) {
	p, ok := s.periods[instrumentID][domain.DateKey(date)]
	return p, ok
}

// Truncate returns a copy of the set restricted to dates up to and
// including the cutoff. Indicator values are unchanged because element
// i of a series never depends on later bars.
func (s *SeriesSet) Truncate(cutoff time.Time) *SeriesSet {
	out := &SeriesSet{
		periods: make(map[string]map[string]domain.PeriodData, len(s.periods)),
	}
	for _, d := range s.Dates {
		if d.After(cutoff) {
			break
		}
		out.Dates = append(out.Dates, d)
	}
	keep := make(map[string]struct{}, len(out.Dates))
	for _, d := range out.Dates {
		keep[domain.DateKey(d)] = struct{}{}
	}
	for id, byDate := range s.periods {
		dst := make(map[string]domain.PeriodData)
		for key, p := range byDate {
			if _, ok := keep[key]; ok {
				dst[key] = p
			}
		}
		out.periods[id] = dst
	}
	return out
}
