package indicators

import (
	"math"

	"rotation-lab/internal/domain"
)

// Tolerances for swing comparison: price must sit within priceEps of
// the window extreme, while the oscillator must back off the window
// extreme by at least oscBackoff.
const (
	priceEps   = 0.01
	oscBackoff = 0.02
)

// DivergenceFlags holds per-index divergence detections.
type DivergenceFlags struct {
	Bearish []bool // price higher high, oscillator lower high
	Bullish []bool // price lower low, oscillator higher low
}

// DetectDivergence scans each index's trailing lookback window and
// flags bearish/bullish divergences between price and the oscillator.
// Indices whose window contains undefined oscillator values are left
// unflagged; divergence is a scored dimension input, never fabricated.
func DetectDivergence(closes []float64, osc []domain.Value, lookback int) DivergenceFlags {
	n := len(closes)
	flags := DivergenceFlags{
		Bearish: make([]bool, n),
		Bullish: make([]bool, n),
	}

	for i := lookback; i < n; i++ {
		lo := i - lookback

		maxP, minP := closes[lo], closes[lo]
		maxO, minO := math.Inf(-1), math.Inf(1)
		ok := true
		for j := lo; j <= i; j++ {
			if !osc[j].Defined {
				ok = false
				break
			}
			if closes[j] > maxP {
				maxP = closes[j]
			}
			if closes[j] < minP {
				minP = closes[j]
			}
			if osc[j].V > maxO {
				maxO = osc[j].V
			}
			if osc[j].V < minO {
				minO = osc[j].V
			}
		}
		if !ok {
			continue
		}

		price := closes[i]
		oscV := osc[i].V

		// Bearish: price forms the window high while the oscillator
		// stays below its own high.
		if math.Abs(price-maxP) < priceEps && oscV < maxO*(1-oscBackoff) {
			flags.Bearish[i] = true
		}
		// Bullish: price forms the window low while the oscillator
		// stays above its own low.
		if math.Abs(price-minP) < priceEps && oscV > minO*(1+oscBackoff) {
			flags.Bullish[i] = true
		}
	}
	return flags
}
