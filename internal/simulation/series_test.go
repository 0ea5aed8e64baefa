package simulation

import (
	"errors"
	"testing"
	"time"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
)

func TestBuildSeriesSet_MasterDateUnion(t *testing.T) {
	cfg := config.Default()
	instruments := []domain.Instrument{
		{ID: "600000", Industry: "banking"},
		{ID: "600001", Industry: "tech"},
	}

	// 600001 misses the second week.
	a := weeklyBars("600000", 3, func(int) float64 { return 10 })
	b := weeklyBars("600001", 3, func(int) float64 { return 20 })
	b = append(b[:1], b[2:]...)

	set, err := BuildSeriesSet(instruments, map[string][]domain.PriceBar{"600000": a, "600001": b}, cfg)
	if err != nil {
		t.Fatalf("BuildSeriesSet: %v", err)
	}

	if len(set.Dates) != 3 {
		t.Fatalf("expected union of 3 dates, got %d", len(set.Dates))
	}
	for i := 1; i < len(set.Dates); i++ {
		if !set.Dates[i-1].Before(set.Dates[i]) {
			t.Fatal("master index must be strictly ascending")
		}
	}

	// 600001 is absent on the date it skipped.
	if _, ok := set.At("600001", simStart.AddDate(0, 0, 7)); ok {
		t.Error("expected no period data for the skipped week")
	}
	if _, ok := set.At("600000", simStart.AddDate(0, 0, 7)); !ok {
		t.Error("expected period data for 600000 on its bar date")
	}
}

func TestBuildSeriesSet_RejectsForeignBar(t *testing.T) {
	cfg := config.Default()
	instruments := []domain.Instrument{{ID: "600000", Industry: "banking"}}

	history := weeklyBars("600000", 3, func(int) float64 { return 10 })
	history[1].InstrumentID = "600001"

	_, err := BuildSeriesSet(instruments, map[string][]domain.PriceBar{"600000": history}, cfg)
	if !errors.Is(err, ErrDataAlignment) {
		t.Errorf("expected ErrDataAlignment for foreign bar, got %v", err)
	}
}

func TestBuildSeriesSet_RejectsOutOfOrder(t *testing.T) {
	cfg := config.Default()
	instruments := []domain.Instrument{{ID: "600000", Industry: "banking"}}

	history := weeklyBars("600000", 3, func(int) float64 { return 10 })
	history[1].Date = history[0].Date.AddDate(0, 0, -7)

	_, err := BuildSeriesSet(instruments, map[string][]domain.PriceBar{"600000": history}, cfg)
	if !errors.Is(err, ErrDataAlignment) {
		t.Errorf("expected ErrDataAlignment for descending dates, got %v", err)
	}
}

func TestSeriesSet_TruncateNoLookAhead(t *testing.T) {
	cfg := config.Default()
	instruments := []domain.Instrument{{ID: "600000", Industry: "banking", FairValue: 20}}
	history := weeklyBars("600000", 30, func(i int) float64 { return 20 - 0.3*float64(i) })

	full, err := BuildSeriesSet(instruments, map[string][]domain.PriceBar{"600000": history}, cfg)
	if err != nil {
		t.Fatalf("BuildSeriesSet: %v", err)
	}

	cutoff := simStart.AddDate(0, 0, 7*19) // keep the first 20 periods
	part := full.Truncate(cutoff)

	if len(part.Dates) != 20 {
		t.Fatalf("expected 20 dates after truncation, got %d", len(part.Dates))
	}
	if _, ok := part.At("600000", simStart.AddDate(0, 0, 7*20)); ok {
		t.Error("truncated set must not expose periods past the cutoff")
	}

	// Indicator values inside the kept range are identical: element i
	// of a series never depends on later bars.
	for _, d := range part.Dates {
		got, _ := part.At("600000", d)
		want, _ := full.At("600000", d)
		if got.Indicators.RSI != want.Indicators.RSI ||
			got.Indicators.EMA != want.Indicators.EMA ||
			got.Indicators.MACDHist != want.Indicators.MACDHist {
			t.Fatalf("indicators at %v changed under truncation", d)
		}
	}
}

func TestSeriesSet_AtUnknownInstrument(t *testing.T) {
	set := &SeriesSet{periods: map[string]map[string]domain.PeriodData{}}
	if _, ok := set.At("nobody", time.Now()); ok {
		t.Error("unknown instrument must report no data")
	}
}
