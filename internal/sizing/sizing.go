// Package sizing converts buy decisions into share counts. Policies
// are pluggable so a run can switch allocation schemes without
// touching the ledger or the simulator.
package sizing

import (
	"github.com/shopspring/decimal"

	"rotation-lab/internal/domain"
)

// Policy decides how many shares to buy. Implementations must return
// a non-negative multiple of lotSize and never exceed what
// availableCash can pay for at the given price; a return of 0 means
// the order is skipped.
type Policy interface {
	Shares(decision *domain.SignalDecision, availableCash decimal.Decimal, price float64, lotSize int64) int64
}

// lotFloor converts a target notional into whole lots, rounding down.
func lotFloor(notional decimal.Decimal, price float64, lotSize int64) int64 {
	if price <= 0 || lotSize <= 0 {
		return 0
	}
	shares := notional.Div(decimal.NewFromFloat(price)).IntPart()
	shares -= shares % lotSize
	if shares < 0 {
		return 0
	}
	return shares
}

// FractionOfCash allocates a fixed fraction of currently available
// cash to each buy. This is the default policy.
type FractionOfCash struct {
	Fraction float64
}

var _ Policy = FractionOfCash{}

func (p FractionOfCash) Shares(_ *domain.SignalDecision, availableCash decimal.Decimal, price float64, lotSize int64) int64 {
	if p.Fraction <= 0 {
		return 0
	}
	target := availableCash.Mul(decimal.NewFromFloat(p.Fraction))
	return lotFloor(target, price, lotSize)
}

// FixedNotional allocates the same target amount to every buy,
// capped by available cash.
type FixedNotional struct {
	Amount float64
}

var _ Policy = FixedNotional{}

func (p FixedNotional) Shares(_ *domain.SignalDecision, availableCash decimal.Decimal, price float64, lotSize int64) int64 {
	target := decimal.NewFromFloat(p.Amount)
	if target.GreaterThan(availableCash) {
		target = availableCash
	}
	return lotFloor(target, price, lotSize)
}
