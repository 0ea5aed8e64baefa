package indicators

import (
	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
)

// BuildSeries derives the full indicator snapshot sequence for one
// instrument's bars. fairValue of zero leaves ValueRatio undefined for
// every period (the scoring gate is then skipped or falls back to the
// EMA trend filter, per configuration).
func BuildSeries(bars []domain.PriceBar, fairValue float64, cfg config.Config) []domain.PeriodData {
	n := len(bars)
	closes := make([]float64, n)
	volumes := make([]int64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ind := cfg.Indicators
	rsi := RSI(closes, ind.RSIPeriod)
	ema := EMA(closes, ind.EMAPeriod)
	trend := EMATrend(ema)
	macd := MACD(closes, ind.MACDFast, ind.MACDSlow, ind.MACDSignal)
	boll := Bollinger(closes, ind.BollPeriod, ind.BollStdDev)
	volMA := VolumeMA(volumes, ind.VolumeMAPeriod)
	div := DetectDivergence(closes, rsi, cfg.Signals.DivergenceLookback)

	series := make([]domain.PeriodData, n)
	for i := 0; i < n; i++ {
		snap := domain.IndicatorSnapshot{
			RSI:        rsi[i],
			EMA:        ema[i],
			EMATrend:   trend[i],
			MACDLine:   macd.Line[i],
			MACDSignal: macd.Signal[i],
			MACDHist:   macd.Histogram[i],
			BollUpper:  boll.Upper[i],
			BollMiddle: boll.Middle[i],
			BollLower:  boll.Lower[i],
			VolumeMA:   volMA[i],

			BearishDivergence: div.Bearish[i],
			BullishDivergence: div.Bullish[i],
		}
		if i >= 1 {
			snap.MACDHistPrev = macd.Histogram[i-1]
			snap.MACDLinePrev = macd.Line[i-1]
			snap.MACDSigPrev = macd.Signal[i-1]
		}
		if i >= 2 {
			snap.MACDHist2Ago = macd.Histogram[i-2]
		}
		if fairValue > 0 {
			snap.ValueRatio = domain.Def(bars[i].Close / fairValue)
		}
		series[i] = domain.PeriodData{Bar: bars[i], Indicators: snap}
	}
	return series
}
