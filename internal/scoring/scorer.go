// Package scoring evaluates one instrument at one period against the
// four-dimension signal scheme and produces a typed decision with full
// provenance. The decision object is the single source of truth reused
// by the simulator and reporting; nothing downstream recomputes it.
package scoring

import (
	"fmt"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
)

const insufficientData = "insufficient data"

// Scorer scores instruments period by period. Stateless; safe to call
// concurrently for different instruments.
type Scorer struct {
	cfg config.SignalConfig
}

// NewScorer creates a scorer with the given signal parameters.
func NewScorer(cfg config.SignalConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// direction is the side a dimension evaluation supports.
type direction int

const (
	sideSell direction = iota
	sideBuy
)

// dimEval is one dimension's evaluation for one direction.
type dimEval struct {
	score    int
	override bool // oscillator extreme only
	reason   string
}

// Score evaluates the four dimensions in fixed order and applies the
// decision rule: hard gate, then 2-of-3 among the scored dimensions,
// with an oscillator-extreme override bypassing the 2-of-3 count.
func (s *Scorer) Score(inst domain.Instrument, period domain.PeriodData, ts domain.ThresholdSet) *domain.SignalDecision {
	bar := period.Bar
	snap := period.Indicators

	gateSell, gateBuy, gateSellReason, gateBuyReason := s.evalGate(inst, bar, snap)

	oscSell := s.evalOscillator(sideSell, snap, ts)
	oscBuy := s.evalOscillator(sideBuy, snap, ts)
	momSell := evalMomentum(sideSell, snap)
	momBuy := evalMomentum(sideBuy, snap)
	volSell := s.evalExtremeVolume(sideSell, bar, snap)
	volBuy := s.evalExtremeVolume(sideBuy, bar, snap)

	// Sell side first, matching the fixed evaluation order.
	if gateSell {
		if d := decide(domain.DecisionSell, gateSellReason, oscSell, momSell, volSell); d != nil {
			return finish(d, inst, bar, snap)
		}
	}
	if gateBuy {
		if d := decide(domain.DecisionBuy, gateBuyReason, oscBuy, momBuy, volBuy); d != nil {
			return finish(d, inst, bar, snap)
		}
	}

	// No directional decision reached.
	hold := &domain.SignalDecision{
		Kind: domain.DecisionHold,
		Gate: domain.DimensionResult{Name: domain.DimValueGate, Reason: holdGateReason(gateSell, gateBuy, gateSellReason, gateBuyReason)},
		Dimensions: []domain.DimensionResult{
			{Name: domain.DimOscillator, Reason: fmt.Sprintf("sell: %s; buy: %s", oscSell.reason, oscBuy.reason)},
			{Name: domain.DimMomentum, Reason: fmt.Sprintf("sell: %s; buy: %s", momSell.reason, momBuy.reason)},
			{Name: domain.DimExtremeVolume, Reason: fmt.Sprintf("sell: %s; buy: %s", volSell.reason, volBuy.reason)},
		},
	}
	hold.TriggerReasons = append(hold.TriggerReasons,
		hold.Gate.Reason,
		fmt.Sprintf("signal below 2-of-3 (sell dims: %d, buy dims: %d)",
			countPositive(oscSell, momSell, volSell), countPositive(oscBuy, momBuy, volBuy)))
	return finish(hold, inst, bar, snap)
}

// decide applies the 2-of-3 rule with extreme override for one
// direction. Returns nil when the direction does not trigger.
func decide(kind domain.DecisionKind, gateReason string, osc, mom, vol dimEval) *domain.SignalDecision {
	positive := countPositive(osc, mom, vol)
	if !osc.override && positive < 2 {
		return nil
	}

	d := &domain.SignalDecision{
		Kind:     kind,
		Override: osc.override,
		Gate:     domain.DimensionResult{Name: domain.DimValueGate, Score: 1, Reason: gateReason},
		Dimensions: []domain.DimensionResult{
			{Name: domain.DimOscillator, Score: osc.score, Reason: osc.reason},
			{Name: domain.DimMomentum, Score: mom.score, Reason: mom.reason},
			{Name: domain.DimExtremeVolume, Score: vol.score, Reason: vol.reason},
		},
		TotalScore: osc.score + mom.score + vol.score,
	}
	d.TriggerReasons = append(d.TriggerReasons, gateReason, osc.reason, mom.reason, vol.reason)
	return d
}

func countPositive(dims ...dimEval) int {
	n := 0
	for _, d := range dims {
		if d.score > 0 {
			n++
		}
	}
	return n
}

func finish(d *domain.SignalDecision, inst domain.Instrument, bar domain.PriceBar, snap domain.IndicatorSnapshot) *domain.SignalDecision {
	d.InstrumentID = inst.ID
	d.Date = bar.Date
	d.Indicators = snap
	return d
}

func holdGateReason(gateSell, gateBuy bool, sellReason, buyReason string) string {
	switch {
	case gateSell:
		return sellReason
	case gateBuy:
		return buyReason
	default:
		return fmt.Sprintf("gate blocks both directions (sell: %s; buy: %s)", sellReason, buyReason)
	}
}

// evalGate evaluates the hard precondition for both directions.
// With a configured fair value it is the value-ratio filter; without
// one it is skipped or, when configured, falls back to the EMA trend
// filter.
func (s *Scorer) evalGate(inst domain.Instrument, bar domain.PriceBar, snap domain.IndicatorSnapshot) (sellOK, buyOK bool, sellReason, buyReason string) {
	if snap.ValueRatio.Defined {
		ratio := snap.ValueRatio.V
		sellOK = ratio > s.cfg.ValueRatioSell
		buyOK = ratio < s.cfg.ValueRatioBuy
		if sellOK {
			sellReason = fmt.Sprintf("value ratio gate: %.3f > %.2f", ratio, s.cfg.ValueRatioSell)
		} else {
			sellReason = fmt.Sprintf("value ratio %.3f not above sell threshold %.2f", ratio, s.cfg.ValueRatioSell)
		}
		if buyOK {
			buyReason = fmt.Sprintf("value ratio gate: %.3f < %.2f", ratio, s.cfg.ValueRatioBuy)
		} else {
			buyReason = fmt.Sprintf("value ratio %.3f not below buy threshold %.2f", ratio, s.cfg.ValueRatioBuy)
		}
		return sellOK, buyOK, sellReason, buyReason
	}

	if s.cfg.GateFallback == config.GateFallbackEMATrend && snap.EMA.Defined {
		sellOK = bar.Close > snap.EMA.V && snap.EMATrend == domain.TrendUp
		buyOK = bar.Close < snap.EMA.V && snap.EMATrend == domain.TrendDown
		sellReason = fmt.Sprintf("EMA trend gate (sell): close %.2f vs EMA %.2f, trend %s", bar.Close, snap.EMA.V, snap.EMATrend)
		buyReason = fmt.Sprintf("EMA trend gate (buy): close %.2f vs EMA %.2f, trend %s", bar.Close, snap.EMA.V, snap.EMATrend)
		return sellOK, buyOK, sellReason, buyReason
	}

	reason := "no fair value configured, gate skipped"
	return true, true, reason, reason
}

// evalOscillator compares RSI against the resolved thresholds and adds
// a divergence point. Extreme bounds set the override flag.
func (s *Scorer) evalOscillator(dir direction, snap domain.IndicatorSnapshot, ts domain.ThresholdSet) dimEval {
	if !snap.RSI.Defined {
		return dimEval{reason: "oscillator: " + insufficientData}
	}
	rsi := snap.RSI.V

	var ev dimEval
	if dir == sideSell {
		if rsi >= ts.Overbought {
			ev.score++
			ev.reason = fmt.Sprintf("RSI %.1f at or above overbought %.1f", rsi, ts.Overbought)
		}
		if snap.BearishDivergence {
			ev.score++
			ev.reason = appendReason(ev.reason, "bearish divergence")
		}
		if rsi >= ts.ExtremeOverbought {
			ev.override = true
			ev.reason = appendReason("RSI extreme overbought override", fmt.Sprintf("RSI %.1f >= %.1f", rsi, ts.ExtremeOverbought))
		}
	} else {
		if rsi <= ts.Oversold {
			ev.score++
			ev.reason = fmt.Sprintf("RSI %.1f at or below oversold %.1f", rsi, ts.Oversold)
		}
		if snap.BullishDivergence {
			ev.score++
			ev.reason = appendReason(ev.reason, "bullish divergence")
		}
		if rsi <= ts.ExtremeOversold {
			ev.override = true
			ev.reason = appendReason("RSI extreme oversold override", fmt.Sprintf("RSI %.1f <= %.1f", rsi, ts.ExtremeOversold))
		}
	}
	if ev.score == 0 && !ev.override {
		ev.reason = fmt.Sprintf("RSI %.1f inside ordinary bounds [%.1f, %.1f]", rsi, ts.Oversold, ts.Overbought)
	}
	return ev
}

// evalMomentum checks MACD exhaustion, crossover and histogram sign.
func evalMomentum(dir direction, snap domain.IndicatorSnapshot) dimEval {
	if !snap.MACDHist.Defined || !snap.MACDLine.Defined || !snap.MACDSignal.Defined {
		return dimEval{reason: "momentum: " + insufficientData}
	}
	hist := snap.MACDHist.V

	shrinking := histShrinking(dir, snap)
	crossed := crossedThisPeriod(dir, snap)

	var confirms bool
	if dir == sideSell {
		confirms = hist < 0
	} else {
		confirms = hist > 0
	}

	if !shrinking && !crossed && !confirms {
		return dimEval{reason: "no momentum confirmation"}
	}

	ev := dimEval{score: 1}
	switch {
	case shrinking:
		ev.reason = "MACD histogram shrinking 2 consecutive periods"
	case crossed:
		if dir == sideSell {
			ev.reason = "MACD death cross"
		} else {
			ev.reason = "MACD golden cross"
		}
	default:
		if dir == sideSell {
			ev.reason = "MACD histogram already negative"
		} else {
			ev.reason = "MACD histogram already positive"
		}
	}
	return ev
}

// histShrinking reports two consecutive magnitude contractions with an
// unchanged sign: positive-histogram exhaustion supports sells,
// negative-histogram exhaustion supports buys.
func histShrinking(dir direction, snap domain.IndicatorSnapshot) bool {
	if !snap.MACDHistPrev.Defined || !snap.MACDHist2Ago.Defined {
		return false
	}
	h0, h1, h2 := snap.MACDHist.V, snap.MACDHistPrev.V, snap.MACDHist2Ago.V
	if dir == sideSell {
		return h0 > 0 && h1 > 0 && h2 > 0 && h0 < h1 && h1 < h2
	}
	return h0 < 0 && h1 < 0 && h2 < 0 && -h0 < -h1 && -h1 < -h2
}

// crossedThisPeriod detects a line/signal crossover at this period.
func crossedThisPeriod(dir direction, snap domain.IndicatorSnapshot) bool {
	if !snap.MACDLinePrev.Defined || !snap.MACDSigPrev.Defined {
		return false
	}
	line, sig := snap.MACDLine.V, snap.MACDSignal.V
	prevLine, prevSig := snap.MACDLinePrev.V, snap.MACDSigPrev.V
	if dir == sideSell {
		return line < sig && prevLine >= prevSig
	}
	return line > sig && prevLine <= prevSig
}

// evalExtremeVolume checks a Bollinger band touch confirmed by elevated
// volume. Sell-side requires heavier volume than buy-side.
func (s *Scorer) evalExtremeVolume(dir direction, bar domain.PriceBar, snap domain.IndicatorSnapshot) dimEval {
	if !snap.BollUpper.Defined || !snap.BollLower.Defined || !snap.VolumeMA.Defined {
		return dimEval{reason: "extreme price/volume: " + insufficientData}
	}
	vol := float64(bar.Volume)

	if dir == sideSell {
		need := snap.VolumeMA.V * s.cfg.VolumeSellRatio
		if bar.Close >= snap.BollUpper.V && vol >= need {
			return dimEval{score: 1, reason: fmt.Sprintf("close %.2f at upper band %.2f with volume %.0f >= %.0f", bar.Close, snap.BollUpper.V, vol, need)}
		}
		return dimEval{reason: "no upper-band volume confirmation"}
	}

	need := snap.VolumeMA.V * s.cfg.VolumeBuyRatio
	if bar.Close <= snap.BollLower.V && vol >= need {
		return dimEval{score: 1, reason: fmt.Sprintf("close %.2f at lower band %.2f with volume %.0f >= %.0f", bar.Close, snap.BollLower.V, vol, need)}
	}
	return dimEval{reason: "no lower-band volume confirmation"}
}

func appendReason(base, extra string) string {
	if base == "" {
		return extra
	}
	return base + "; " + extra
}
