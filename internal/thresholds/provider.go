// Package thresholds resolves industry- and volatility-tier-specific
// RSI bounds for signal scoring. The table is computed offline from a
// long lookback window, loaded once before a run, and immutable while
// the run executes.
package thresholds

import (
	"errors"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
)

// ErrThresholdNotFound is returned when an instrument has no industry
// mapping or its industry has no threshold table entry.
var ErrThresholdNotFound = errors.New("threshold not found")

// Provider resolves ThresholdSets for instruments. Each Provider owns
// its own table; nothing is shared through package state, so parallel
// runs with different tables cannot cross-contaminate.
type Provider struct {
	table      *Table
	industries map[string]string // instrument id -> industry
}

// NewProvider creates a provider over a loaded table and the instrument
// registry supplying industry classifications.
func NewProvider(table *Table, instruments []domain.Instrument) *Provider {
	industries := make(map[string]string, len(instruments))
	for _, inst := range instruments {
		if inst.Industry != "" {
			industries[inst.ID] = inst.Industry
		}
	}
	return &Provider{table: table, industries: industries}
}

// Resolve returns the fully populated ThresholdSet for an instrument.
// The asOf date is accepted for interface stability but resolution is a
// pure table lookup; the table itself is refreshed outside the run.
// Safe for concurrent use.
func (p *Provider) Resolve(instrumentID string, _ time.Time) (domain.ThresholdSet, error) {
	industry, ok := p.industries[instrumentID]
	if !ok {
		return domain.ThresholdSet{}, fmt.Errorf("%w: instrument %s has no industry mapping", ErrThresholdNotFound, instrumentID)
	}
	set, ok := p.table.Lookup(industry)
	if !ok {
		return domain.ThresholdSet{}, fmt.Errorf("%w: industry %s has no table entry", ErrThresholdNotFound, industry)
	}
	return set, nil
}
