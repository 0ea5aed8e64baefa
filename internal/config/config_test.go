package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero initial cash", func(c *Config) { c.InitialCash = 0 }},
		{"negative lot size", func(c *Config) { c.LotSize = -100 }},
		{"buy fraction above one", func(c *Config) { c.BuyFraction = 1.5 }},
		{"zero buy fraction", func(c *Config) { c.BuyFraction = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative commission rate", func(c *Config) { c.Costs.CommissionRate = -0.001 }},
		{"negative min commission", func(c *Config) { c.Costs.MinCommission = -1 }},
		{"zero buy ratio", func(c *Config) { c.Signals.ValueRatioBuy = 0 }},
		{"buy ratio above sell ratio", func(c *Config) { c.Signals.ValueRatioBuy = 0.9 }},
		{"short divergence lookback", func(c *Config) { c.Signals.DivergenceLookback = 1 }},
		{"unknown gate fallback", func(c *Config) { c.Signals.GateFallback = "always" }},
		{"macd fast above slow", func(c *Config) { c.Indicators.MACDFast = 30 }},
		{"zero rsi period", func(c *Config) { c.Indicators.RSIPeriod = 0 }},
		{"empty instrument id", func(c *Config) {
			c.Instruments = []InstrumentConfig{{Name: "no id"}}
		}},
		{"duplicate instrument id", func(c *Config) {
			c.Instruments = []InstrumentConfig{{ID: "600519"}, {ID: "600519"}}
		}},
		{"negative fair value", func(c *Config) {
			c.Instruments = []InstrumentConfig{{ID: "600519", FairValue: -1}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
initial_cash: 500000
buy_fraction: 0.25
signals:
  gate_fallback: ema-trend
instruments:
  - id: "600519"
    name: Kweichow Moutai
    industry: Beverages
    fair_value: 1800
    shanghai: true
  - id: "000001"
    name: Ping An Bank
    industry: Banks
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.InitialCash != 500000 {
		t.Errorf("expected initial_cash 500000, got %v", cfg.InitialCash)
	}
	if cfg.BuyFraction != 0.25 {
		t.Errorf("expected buy_fraction 0.25, got %v", cfg.BuyFraction)
	}
	if cfg.Signals.GateFallback != GateFallbackEMATrend {
		t.Errorf("expected ema-trend fallback, got %q", cfg.Signals.GateFallback)
	}
	// Untouched fields keep their defaults.
	if cfg.LotSize != 100 {
		t.Errorf("expected default lot_size 100, got %d", cfg.LotSize)
	}
	if cfg.Costs.StampTaxRate != 0.001 {
		t.Errorf("expected default stamp_tax_rate 0.001, got %v", cfg.Costs.StampTaxRate)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(cfg.Instruments))
	}
	if !cfg.Instruments[0].Shanghai || cfg.Instruments[1].Shanghai {
		t.Errorf("expected shanghai flags [true false], got [%v %v]",
			cfg.Instruments[0].Shanghai, cfg.Instruments[1].Shanghai)
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("initial_cash: -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestInstrumentList_Conversion(t *testing.T) {
	cfg := Default()
	cfg.Instruments = []InstrumentConfig{
		{ID: "600519", Name: "Kweichow Moutai", Industry: "Beverages", FairValue: 1800, Shanghai: true},
	}

	list := cfg.InstrumentList()
	if len(list) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(list))
	}
	inst := list[0]
	if inst.ID != "600519" || inst.Industry != "Beverages" || inst.FairValue != 1800 || !inst.Shanghai {
		t.Errorf("unexpected conversion result: %+v", inst)
	}
}
