// Package config holds the single authoritative backtest configuration,
// constructed once at startup and passed by value to every component.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rotation-lab/internal/domain"
)

// ErrInvalidConfig is returned for configuration that cannot produce a
// valid run. Fatal at startup, before any period executes.
var ErrInvalidConfig = errors.New("invalid configuration")

// GateFallback selects what the value-ratio gate does for instruments
// without a configured fair value.
type GateFallback string

// Gate fallback modes.
const (
	// GateFallbackNone treats the gate as satisfied in both directions.
	GateFallbackNone GateFallback = "none"
	// GateFallbackEMATrend gates on the EMA trend filter instead
	// (sell: close above a rising EMA, buy: close below a falling EMA).
	GateFallbackEMATrend GateFallback = "ema-trend"
)

// CostConfig holds the transaction cost model rates.
type CostConfig struct {
	CommissionRate  float64 `yaml:"commission_rate"`
	MinCommission   float64 `yaml:"min_commission"`
	StampTaxRate    float64 `yaml:"stamp_tax_rate"`    // sell-side only
	TransferFeeRate float64 `yaml:"transfer_fee_rate"` // Shanghai-listed only
	SlippageRate    float64 `yaml:"slippage_rate"`
}

// SignalConfig holds scoring parameters.
type SignalConfig struct {
	ValueRatioBuy      float64      `yaml:"value_ratio_buy"`  // buy-eligible below
	ValueRatioSell     float64      `yaml:"value_ratio_sell"` // sell-eligible above
	VolumeBuyRatio     float64      `yaml:"volume_buy_ratio"`
	VolumeSellRatio    float64      `yaml:"volume_sell_ratio"`
	DivergenceLookback int          `yaml:"divergence_lookback"`
	GateFallback       GateFallback `yaml:"gate_fallback"`
}

// IndicatorConfig holds indicator lookback windows.
type IndicatorConfig struct {
	EMAPeriod      int `yaml:"ema_period"`
	RSIPeriod      int `yaml:"rsi_period"`
	MACDFast       int `yaml:"macd_fast"`
	MACDSlow       int `yaml:"macd_slow"`
	MACDSignal     int `yaml:"macd_signal"`
	BollPeriod     int `yaml:"boll_period"`
	BollStdDev     float64 `yaml:"boll_std_dev"`
	VolumeMAPeriod int `yaml:"volume_ma_period"`
}

// InstrumentConfig describes one tracked instrument.
type InstrumentConfig struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Industry  string  `yaml:"industry"`
	FairValue float64 `yaml:"fair_value"`
	Shanghai  bool    `yaml:"shanghai"`
}

// Config is the full backtest configuration.
type Config struct {
	InitialCash float64 `yaml:"initial_cash"`
	LotSize     int64   `yaml:"lot_size"`
	BuyFraction float64 `yaml:"buy_fraction"` // fraction of cash per buy order

	// Workers controls parallel scoring within a period. 1 disables.
	Workers int `yaml:"workers"`

	Costs       CostConfig         `yaml:"costs"`
	Signals     SignalConfig       `yaml:"signals"`
	Indicators  IndicatorConfig    `yaml:"indicators"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// Default returns the built-in configuration used by tests and as the
// base that file values override.
func Default() Config {
	return Config{
		InitialCash: 1_000_000,
		LotSize:     100,
		BuyFraction: 0.10,
		Workers:     1,
		Costs: CostConfig{
			CommissionRate:  0.0003,
			MinCommission:   5.0,
			StampTaxRate:    0.001,
			TransferFeeRate: 0.00002,
			SlippageRate:    0.001,
		},
		Signals: SignalConfig{
			ValueRatioBuy:      0.70,
			ValueRatioSell:     0.80,
			VolumeBuyRatio:     0.8,
			VolumeSellRatio:    1.3,
			DivergenceLookback: 13,
			GateFallback:       GateFallbackNone,
		},
		Indicators: IndicatorConfig{
			EMAPeriod:      20,
			RSIPeriod:      14,
			MACDFast:       12,
			MACDSlow:       26,
			MACDSignal:     9,
			BollPeriod:     20,
			BollStdDev:     2,
			VolumeMAPeriod: 4,
		},
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot produce a
// valid run.
func (c Config) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("%w: initial_cash must be positive, got %v", ErrInvalidConfig, c.InitialCash)
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("%w: lot_size must be positive, got %d", ErrInvalidConfig, c.LotSize)
	}
	if c.BuyFraction <= 0 || c.BuyFraction > 1 {
		return fmt.Errorf("%w: buy_fraction must be in (0,1], got %v", ErrInvalidConfig, c.BuyFraction)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Costs.CommissionRate < 0 || c.Costs.StampTaxRate < 0 || c.Costs.SlippageRate < 0 || c.Costs.TransferFeeRate < 0 {
		return fmt.Errorf("%w: cost rates must be non-negative", ErrInvalidConfig)
	}
	if c.Costs.MinCommission < 0 {
		return fmt.Errorf("%w: min_commission must be non-negative, got %v", ErrInvalidConfig, c.Costs.MinCommission)
	}
	if c.Signals.ValueRatioBuy <= 0 || c.Signals.ValueRatioSell <= 0 {
		return fmt.Errorf("%w: value ratio thresholds must be positive", ErrInvalidConfig)
	}
	if c.Signals.ValueRatioBuy >= c.Signals.ValueRatioSell {
		return fmt.Errorf("%w: value_ratio_buy (%v) must be below value_ratio_sell (%v)",
			ErrInvalidConfig, c.Signals.ValueRatioBuy, c.Signals.ValueRatioSell)
	}
	if c.Signals.DivergenceLookback < 2 {
		return fmt.Errorf("%w: divergence_lookback must be >= 2, got %d", ErrInvalidConfig, c.Signals.DivergenceLookback)
	}
	switch c.Signals.GateFallback {
	case GateFallbackNone, GateFallbackEMATrend:
	default:
		return fmt.Errorf("%w: unknown gate_fallback %q", ErrInvalidConfig, c.Signals.GateFallback)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("%w: macd_fast (%d) must be below macd_slow (%d)",
			ErrInvalidConfig, c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	for i, p := range []int{
		c.Indicators.EMAPeriod, c.Indicators.RSIPeriod, c.Indicators.MACDFast,
		c.Indicators.MACDSignal, c.Indicators.BollPeriod, c.Indicators.VolumeMAPeriod,
	} {
		if p <= 0 {
			return fmt.Errorf("%w: indicator period #%d must be positive", ErrInvalidConfig, i)
		}
	}
	seen := make(map[string]struct{}, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.ID == "" {
			return fmt.Errorf("%w: instrument with empty id", ErrInvalidConfig)
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("%w: duplicate instrument id %s", ErrInvalidConfig, inst.ID)
		}
		seen[inst.ID] = struct{}{}
		if inst.FairValue < 0 {
			return fmt.Errorf("%w: instrument %s fair_value must be non-negative", ErrInvalidConfig, inst.ID)
		}
	}
	return nil
}

// InstrumentList converts the configured instruments into domain form.
func (c Config) InstrumentList() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		out = append(out, domain.Instrument{
			ID:        ic.ID,
			Name:      ic.Name,
			Industry:  ic.Industry,
			FairValue: ic.FairValue,
			Shanghai:  ic.Shanghai,
		})
	}
	return out
}
