package indicators

import (
	"math"

	"rotation-lab/internal/domain"
)

// BollingerResult holds the three band series.
type BollingerResult struct {
	Upper  []domain.Value
	Middle []domain.Value
	Lower  []domain.Value
}

// Bollinger computes rolling-mean bands at `stdDev` population standard
// deviations. The first period-1 elements are undefined.
func Bollinger(closes []float64, period int, stdDev float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{
		Upper:  make([]domain.Value, n),
		Middle: make([]domain.Value, n),
		Lower:  make([]domain.Value, n),
	}
	if period <= 0 || n < period {
		return res
	}

	for i := period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		mean := sum / float64(period)

		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(period))

		res.Middle[i] = domain.Def(mean)
		res.Upper[i] = domain.Def(mean + stdDev*sd)
		res.Lower[i] = domain.Def(mean - stdDev*sd)
	}
	return res
}

// VolumeMA computes the rolling mean of volume. The first period-1
// elements are undefined.
func VolumeMA(volumes []int64, period int) []domain.Value {
	out := make([]domain.Value, len(volumes))
	if period <= 0 || len(volumes) < period {
		return out
	}
	for i := period - 1; i < len(volumes); i++ {
		var sum int64
		for j := i - period + 1; j <= i; j++ {
			sum += volumes[j]
		}
		out[i] = domain.Def(float64(sum) / float64(period))
	}
	return out
}
