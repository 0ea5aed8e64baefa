package thresholds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rotation-lab/internal/domain"
)

// Adjustment is the per-tier multiplicative coefficient applied to
// extreme bounds only. Ordinary bounds are never adjusted.
type Adjustment struct {
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`
}

// entry is one industry row in the table file.
type entry struct {
	Industry          string                `yaml:"industry"`
	Tier              domain.VolatilityTier `yaml:"tier"`
	Oversold          float64               `yaml:"oversold"`
	Overbought        float64               `yaml:"overbought"`
	ExtremeOversold   float64               `yaml:"extreme_oversold"`
	ExtremeOverbought float64               `yaml:"extreme_overbought"`
}

// tableFile is the on-disk YAML layout.
type tableFile struct {
	Adjustments map[string]Adjustment `yaml:"adjustments"`
	Industries  []entry               `yaml:"industries"`
}

// Table is the in-memory threshold lookup, keyed by industry.
// Adjustment coefficients are applied at load time so lookups return
// final values.
type Table struct {
	sets map[string]domain.ThresholdSet
}

// LoadTable reads a YAML threshold table and applies per-tier extreme
// adjustments.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read threshold table %s: %w", path, err)
	}

	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse threshold table %s: %w", path, err)
	}
	return buildTable(tf)
}

func buildTable(tf tableFile) (*Table, error) {
	t := &Table{sets: make(map[string]domain.ThresholdSet, len(tf.Industries))}
	for _, e := range tf.Industries {
		if e.Industry == "" {
			return nil, fmt.Errorf("threshold table: entry with empty industry")
		}
		switch e.Tier {
		case domain.TierHigh, domain.TierMedium, domain.TierLow:
		default:
			return nil, fmt.Errorf("threshold table: industry %s has unknown tier %q", e.Industry, e.Tier)
		}
		if _, dup := t.sets[e.Industry]; dup {
			return nil, fmt.Errorf("threshold table: duplicate industry %s", e.Industry)
		}

		set := domain.ThresholdSet{
			Industry:          e.Industry,
			Tier:              e.Tier,
			Oversold:          e.Oversold,
			Overbought:        e.Overbought,
			ExtremeOversold:   e.ExtremeOversold,
			ExtremeOverbought: e.ExtremeOverbought,
		}
		if adj, ok := tf.Adjustments[tierKey(e.Tier)]; ok {
			if adj.Oversold > 0 {
				set.ExtremeOversold *= adj.Oversold
			}
			if adj.Overbought > 0 {
				set.ExtremeOverbought *= adj.Overbought
			}
		}
		t.sets[e.Industry] = set
	}
	return t, nil
}

func tierKey(tier domain.VolatilityTier) string {
	switch tier {
	case domain.TierHigh:
		return "high"
	case domain.TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// NewTableWithDefaults builds a single-tier table mapping every listed
// industry to the classic 30/70 bounds with 20/85 extremes. Used in
// tests and as a fallback when no table file is supplied.
func NewTableWithDefaults(industries ...string) *Table {
	t := &Table{sets: make(map[string]domain.ThresholdSet, len(industries))}
	for _, industry := range industries {
		t.sets[industry] = domain.ThresholdSet{
			Industry:          industry,
			Tier:              domain.TierMedium,
			Oversold:          30,
			Overbought:        70,
			ExtremeOversold:   20,
			ExtremeOverbought: 85,
		}
	}
	return t
}

// SaveTable writes the table as YAML with adjustments already baked
// into the extreme bounds, so reloading it applies no further scaling.
func SaveTable(path string, t *Table) error {
	tf := tableFile{}
	for _, set := range t.Export() {
		tf.Industries = append(tf.Industries, entry{
			Industry:          set.Industry,
			Tier:              set.Tier,
			Oversold:          set.Oversold,
			Overbought:        set.Overbought,
			ExtremeOversold:   set.ExtremeOversold,
			ExtremeOverbought: set.ExtremeOverbought,
		})
	}

	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("marshal threshold table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write threshold table %s: %w", path, err)
	}
	return nil
}

// Lookup returns the ThresholdSet for an industry.
func (t *Table) Lookup(industry string) (domain.ThresholdSet, bool) {
	set, ok := t.sets[industry]
	return set, ok
}

// Industries returns the number of table entries.
func (t *Table) Industries() int {
	return len(t.sets)
}
