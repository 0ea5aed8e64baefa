package domain

// TrendDirection tags the slope of the EMA over its regression window.
type TrendDirection string

// Trend direction constants.
const (
	TrendUp   TrendDirection = "UP"
	TrendDown TrendDirection = "DOWN"
	TrendFlat TrendDirection = "FLAT"
)

// Value is an indicator value that may still be inside its warm-up
// window. Undefined values are never defaulted to zero; consumers must
// check Defined before reading V.
type Value struct {
	V       float64
	Defined bool
}

// Def wraps a defined indicator value.
func Def(v float64) Value {
	return Value{V: v, Defined: true}
}

// Undef returns an undefined (warming-up) indicator value.
func Undef() Value {
	return Value{}
}

// IndicatorSnapshot holds the derived values attached 1:1 to a PriceBar.
// Every field that has a lookback window is explicitly undefined until
// enough history has accumulated.
type IndicatorSnapshot struct {
	// Momentum
	RSI Value // 0-100

	// Trend
	EMA      Value
	EMATrend TrendDirection // TrendFlat while EMA is undefined

	// MACD
	MACDLine     Value
	MACDSignal   Value
	MACDHist     Value
	MACDHistPrev Value // histogram one period back
	MACDHist2Ago Value // histogram two periods back
	MACDLinePrev Value // for crossover detection
	MACDSigPrev  Value

	// Volatility
	BollUpper  Value
	BollMiddle Value
	BollLower  Value

	// Volume
	VolumeMA Value // moving average of volume

	// Valuation: close / fair value, defined only when a fair value
	// estimate is configured for the instrument.
	ValueRatio Value

	// Divergence flags over the configured lookback window.
	BearishDivergence bool // price higher high, oscillator lower
	BullishDivergence bool // price lower low, oscillator higher
}
