package indicators

import "rotation-lab/internal/domain"

// Window and relative-slope cutoff for EMA trend classification.
const (
	trendWindow   = 8
	trendSlopeMin = 0.003 // 0.3% relative slope
)

// EMA computes an exponential moving average seeded with the simple
// average of the first `period` values. The first period-1 elements are
// undefined.
func EMA(values []float64, period int) []domain.Value {
	out := make([]domain.Value, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = domain.Def(ema)

	alpha := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = domain.Def(ema)
	}
	return out
}

// EMATrend classifies the EMA direction at each index using linear
// regression over the trailing trendWindow of defined EMA values. The
// slope is normalized by the window mean; below trendSlopeMin the trend
// is flat.
func EMATrend(ema []domain.Value) []domain.TrendDirection {
	out := make([]domain.TrendDirection, len(ema))
	for i := range out {
		out[i] = domain.TrendFlat
	}

	for i := trendWindow - 1; i < len(ema); i++ {
		window := make([]float64, 0, trendWindow)
		ok := true
		for j := i - trendWindow + 1; j <= i; j++ {
			if !ema[j].Defined {
				ok = false
				break
			}
			window = append(window, ema[j].V)
		}
		if !ok {
			continue
		}
		out[i] = classifySlope(window)
	}
	return out
}

// classifySlope fits y = a + b*x over the window and compares the
// relative slope b/mean(y) against the cutoff.
func classifySlope(window []float64) domain.TrendDirection {
	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return domain.TrendFlat
	}
	slope := (n*sumXY - sumX*sumY) / denom
	mean := sumY / n
	if mean == 0 {
		return domain.TrendFlat
	}

	rel := slope / mean
	switch {
	case rel >= trendSlopeMin:
		return domain.TrendUp
	case rel <= -trendSlopeMin:
		return domain.TrendDown
	default:
		return domain.TrendFlat
	}
}
