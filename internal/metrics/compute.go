package metrics

import (
	"math"
)

// periodsPerYear is the annualization factor for weekly equity curves.
const periodsPerYear = 52.0

// computeReturns converts an equity curve into simple period returns.
// A zero-valued point yields a zero return for that step rather than
// a division blowup; it only occurs on degenerate input.
func computeReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	return returns
}

// computeTotalReturn calculates final/initial - 1.
func computeTotalReturn(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}
	return final/initial - 1
}

// computeAnnualizedReturn compounds the total return over the elapsed
// calendar days: (1+r)^(365/days) - 1.
func computeAnnualizedReturn(totalReturn float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	base := 1 + totalReturn
	if base <= 0 {
		// Total loss or worse; compounding is undefined, report -100%.
		return -1
	}
	return math.Pow(base, 365.0/float64(days)) - 1
}

// computeMaxDrawdown calculates the worst peak-to-trough decline of
// the equity curve as a fraction of the peak.
func computeMaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// computeMean calculates the arithmetic mean.
func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeSharpe calculates the annualized Sharpe ratio from weekly
// returns: mean excess return over stddev, scaled by sqrt(52).
// Returns 0 when volatility is zero (flat curve).
func computeSharpe(returns []float64, riskFreeAnnual float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rfPeriod := riskFreeAnnual / periodsPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rfPeriod
	}
	mean := computeMean(excess)
	sd := computeStddev(excess, mean)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(periodsPerYear)
}

// computeVolatility calculates annualized volatility of weekly returns.
func computeVolatility(returns []float64) float64 {
	mean := computeMean(returns)
	return computeStddev(returns, mean) * math.Sqrt(periodsPerYear)
}
