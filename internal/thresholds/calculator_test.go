package thresholds

import (
	"math"
	"testing"

	"rotation-lab/internal/domain"
)

// noisyRSI builds n observations oscillating around 50 with the given
// amplitude, so dispersion scales with amplitude.
func noisyRSI(n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		out[i] = 50 + sign*amplitude
	}
	return out
}

func TestBuildTable_TierClassification(t *testing.T) {
	opts := DefaultCalcOptions()
	opts.MinSamples = 10

	samples := []Sample{
		{Industry: "utilities", RSI: noisyRSI(60, 2)},
		{Industry: "consumer", RSI: noisyRSI(60, 10)},
		{Industry: "tech", RSI: noisyRSI(60, 30)},
	}

	table, err := BuildTable(samples, opts)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	low, _ := table.Lookup("utilities")
	mid, _ := table.Lookup("consumer")
	high, _ := table.Lookup("tech")

	if low.Tier != domain.TierLow {
		t.Errorf("expected utilities in low tier, got %s", low.Tier)
	}
	if mid.Tier != domain.TierMedium {
		t.Errorf("expected consumer in medium tier, got %s", mid.Tier)
	}
	if high.Tier != domain.TierHigh {
		t.Errorf("expected tech in high tier, got %s", high.Tier)
	}
}

func TestBuildTable_BoundsFromPercentiles(t *testing.T) {
	opts := DefaultCalcOptions()
	opts.MinSamples = 10

	samples := []Sample{{Industry: "tech", RSI: noisyRSI(100, 20)}}

	table, err := BuildTable(samples, opts)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	set, ok := table.Lookup("tech")
	if !ok {
		t.Fatal("tech missing from table")
	}

	// Half the observations are 30, half are 70.
	if set.Oversold != 30 {
		t.Errorf("expected oversold 30, got %f", set.Oversold)
	}
	if set.Overbought != 70 {
		t.Errorf("expected overbought 70, got %f", set.Overbought)
	}
	if set.ExtremeOversold > set.Oversold {
		t.Error("extreme oversold should not exceed ordinary oversold")
	}
	if set.ExtremeOverbought < set.Overbought {
		t.Error("extreme overbought should not fall below ordinary overbought")
	}
}

func TestBuildTable_AdjustmentsScaleExtremesOnly(t *testing.T) {
	opts := DefaultCalcOptions()
	opts.MinSamples = 10

	samples := []Sample{{Industry: "tech", RSI: noisyRSI(100, 20)}}
	base, err := BuildTable(samples, opts)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	baseSet, _ := base.Lookup("tech")

	// A single industry ranks at both tier cut-offs and lands high.
	opts.Adjustments = map[domain.VolatilityTier]Adjustment{
		domain.TierHigh: {Oversold: 0.9, Overbought: 1.1},
	}
	adjusted, err := BuildTable(samples, opts)
	if err != nil {
		t.Fatalf("BuildTable with adjustments: %v", err)
	}
	adjSet, _ := adjusted.Lookup("tech")

	if math.Abs(adjSet.ExtremeOversold-baseSet.ExtremeOversold*0.9) > 1e-9 {
		t.Errorf("extreme oversold not scaled: %f vs base %f", adjSet.ExtremeOversold, baseSet.ExtremeOversold)
	}
	if math.Abs(adjSet.ExtremeOverbought-baseSet.ExtremeOverbought*1.1) > 1e-9 {
		t.Errorf("extreme overbought not scaled: %f vs base %f", adjSet.ExtremeOverbought, baseSet.ExtremeOverbought)
	}
	if adjSet.Oversold != baseSet.Oversold || adjSet.Overbought != baseSet.Overbought {
		t.Error("ordinary bounds must never be adjusted")
	}
}

func TestBuildTable_SkipsThinIndustries(t *testing.T) {
	opts := DefaultCalcOptions()
	opts.MinSamples = 52

	samples := []Sample{
		{Industry: "tech", RSI: noisyRSI(60, 20)},
		{Industry: "thin", RSI: noisyRSI(10, 20)},
	}

	table, err := BuildTable(samples, opts)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if _, ok := table.Lookup("thin"); ok {
		t.Error("industry below MinSamples should be skipped")
	}
	if _, ok := table.Lookup("tech"); !ok {
		t.Error("industry above MinSamples should be present")
	}
}

func TestBuildTable_NoSamples(t *testing.T) {
	if _, err := BuildTable(nil, DefaultCalcOptions()); err == nil {
		t.Error("expected error for empty sample set")
	}
	thin := []Sample{{Industry: "x", RSI: []float64{50}}}
	if _, err := BuildTable(thin, DefaultCalcOptions()); err == nil {
		t.Error("expected error when every industry is below MinSamples")
	}
}

func TestPercentile_Interpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{1, 40},
		{0.5, 25},
		{1.0 / 3.0, 20},
	}
	for _, c := range cases {
		if got := percentile(sorted, c.p); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("percentile(%f): expected %f, got %f", c.p, c.want, got)
		}
	}
}

func TestStddev_SampleDenominator(t *testing.T) {
	// {2,4,4,4,5,5,7,9}: mean 5, sum of squares 32, n-1=7.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	want := math.Sqrt(32.0 / 7.0)
	if got := stddev(values); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, got)
	}
	if got := stddev([]float64{5}); got != 0 {
		t.Errorf("single observation should have zero stddev, got %f", got)
	}
}
