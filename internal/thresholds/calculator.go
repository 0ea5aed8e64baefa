package thresholds

import (
	"fmt"
	"math"
	"sort"

	"rotation-lab/internal/domain"
)

// Sample is one industry's historical RSI observations over the long
// lookback window used for offline table construction.
type Sample struct {
	Industry string
	RSI      []float64
}

// CalcOptions tunes the offline table builder.
type CalcOptions struct {
	// Ordinary bound percentiles, shared by all tiers.
	OrdinaryLowPct  float64
	OrdinaryHighPct float64

	// Extreme bound percentiles per tier: tighter for low-volatility
	// industries, looser for high-volatility ones.
	ExtremePct map[domain.VolatilityTier][2]float64

	// Volatility population quantiles splitting the tiers.
	TierLowQ  float64 // dispersion at or below -> low tier
	TierHighQ float64 // dispersion at or above -> high tier

	// Per-tier multiplicative adjustment applied to extreme bounds.
	Adjustments map[domain.VolatilityTier]Adjustment

	// MinSamples is the minimum number of observations an industry
	// needs; industries below it are skipped.
	MinSamples int
}

// DefaultCalcOptions returns the production builder settings.
func DefaultCalcOptions() CalcOptions {
	return CalcOptions{
		OrdinaryLowPct:  0.15,
		OrdinaryHighPct: 0.85,
		ExtremePct: map[domain.VolatilityTier][2]float64{
			domain.TierHigh:   {0.02, 0.98},
			domain.TierMedium: {0.05, 0.95},
			domain.TierLow:    {0.08, 0.92},
		},
		TierLowQ:   0.25,
		TierHighQ:  0.75,
		MinSamples: 52,
	}
}

// BuildTable computes a threshold table from per-industry RSI samples.
// Tiers come from each industry's RSI dispersion ranked against the
// population's dispersion quantiles; bounds come from per-industry RSI
// percentiles, with tier-specific extreme percentiles and optional
// extreme adjustments.
func BuildTable(samples []Sample, opts CalcOptions) (*Table, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("build threshold table: no samples")
	}

	// Dispersion per industry, then population tier cut-offs.
	type prepared struct {
		industry string
		sorted   []float64
		sigma    float64
	}
	var prep []prepared
	var sigmas []float64
	for _, s := range samples {
		if len(s.RSI) < opts.MinSamples {
			continue
		}
		sorted := make([]float64, len(s.RSI))
		copy(sorted, s.RSI)
		sort.Float64s(sorted)
		sigma := stddev(s.RSI)
		prep = append(prep, prepared{industry: s.Industry, sorted: sorted, sigma: sigma})
		sigmas = append(sigmas, sigma)
	}
	if len(prep) == 0 {
		return nil, fmt.Errorf("build threshold table: no industry has %d+ samples", opts.MinSamples)
	}

	sort.Float64s(sigmas)
	lowCut := percentile(sigmas, opts.TierLowQ)
	highCut := percentile(sigmas, opts.TierHighQ)

	t := &Table{sets: make(map[string]domain.ThresholdSet, len(prep))}
	for _, p := range prep {
		tier := classifyTier(p.sigma, lowCut, highCut)
		pcts, ok := opts.ExtremePct[tier]
		if !ok {
			return nil, fmt.Errorf("build threshold table: no extreme percentiles for tier %s", tier)
		}

		set := domain.ThresholdSet{
			Industry:          p.industry,
			Tier:              tier,
			Oversold:          percentile(p.sorted, opts.OrdinaryLowPct),
			Overbought:        percentile(p.sorted, opts.OrdinaryHighPct),
			ExtremeOversold:   percentile(p.sorted, pcts[0]),
			ExtremeOverbought: percentile(p.sorted, pcts[1]),
		}
		if adj, ok := opts.Adjustments[tier]; ok {
			if adj.Oversold > 0 {
				set.ExtremeOversold *= adj.Oversold
			}
			if adj.Overbought > 0 {
				set.ExtremeOverbought *= adj.Overbought
			}
		}
		t.sets[p.industry] = set
	}
	return t, nil
}

func classifyTier(sigma, lowCut, highCut float64) domain.VolatilityTier {
	switch {
	case sigma >= highCut:
		return domain.TierHigh
	case sigma <= lowCut:
		return domain.TierLow
	default:
		return domain.TierMedium
	}
}

// percentile uses linear interpolation over a pre-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// stddev computes the sample standard deviation (n-1 denominator).
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// Export renders the table back into file form, preserving final
// (already adjusted) extreme bounds. Used by the offline builder CLI.
func (t *Table) Export() []domain.ThresholdSet {
	out := make([]domain.ThresholdSet, 0, len(t.sets))
	for _, set := range t.sets {
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Industry < out[j].Industry })
	return out
}
