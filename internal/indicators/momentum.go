// Package indicators computes per-period technical indicator series
// from weekly price bars. Element i of every series depends only on
// bars 0..i; values inside an indicator's warm-up window are explicitly
// undefined, never defaulted.
package indicators

import "rotation-lab/internal/domain"

// RSI computes the Wilder-smoothed relative strength index.
// The first `period` elements are undefined.
func RSI(closes []float64, period int) []domain.Value {
	out := make([]domain.Value, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = domain.Def(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = domain.Def(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three MACD series.
type MACDResult struct {
	Line      []domain.Value // fast EMA - slow EMA (DIF)
	Signal    []domain.Value // EMA of the line (DEA)
	Histogram []domain.Value // line - signal
}

// MACD computes the MACD line, signal line and histogram.
// The line is undefined until the slow EMA warms up; the signal and
// histogram need a further `signal` periods of defined line values.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		Line:      make([]domain.Value, n),
		Signal:    make([]domain.Value, n),
		Histogram: make([]domain.Value, n),
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	for i := 0; i < n; i++ {
		if fastEMA[i].Defined && slowEMA[i].Defined {
			res.Line[i] = domain.Def(fastEMA[i].V - slowEMA[i].V)
		}
	}

	// Signal line: EMA over the defined prefix of the line.
	alpha := 2.0 / float64(signal+1)
	defined := 0
	var sum, sig float64
	for i := 0; i < n; i++ {
		if !res.Line[i].Defined {
			continue
		}
		defined++
		switch {
		case defined < signal:
			sum += res.Line[i].V
		case defined == signal:
			sum += res.Line[i].V
			sig = sum / float64(signal)
			res.Signal[i] = domain.Def(sig)
		default:
			sig = alpha*res.Line[i].V + (1-alpha)*sig
			res.Signal[i] = domain.Def(sig)
		}
		if res.Signal[i].Defined {
			res.Histogram[i] = domain.Def(res.Line[i].V - res.Signal[i].V)
		}
	}
	return res
}
