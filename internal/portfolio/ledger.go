// Package portfolio owns the cash balance and position lots of a
// backtest run and applies buy/sell operations under the transaction
// cost model. The transaction log and snapshot history are append-only
// and never mutated after being recorded.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/idhash"
)

// Ledger errors. Both are per-order and recoverable: the simulator
// skips the order and records it, the run continues.
var (
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientPosition = errors.New("insufficient position")
)

// Ledger is the stateful portfolio for one run. Not safe for
// concurrent use; the simulator applies orders sequentially.
type Ledger struct {
	runID   string
	lotSize int64
	costs   config.CostConfig

	shanghai map[string]bool // instruments subject to the transfer fee

	cash     decimal.Decimal
	holdings map[string]*domain.PositionLot

	transactions []*domain.Transaction
	snapshots    []*domain.PortfolioSnapshot
}

// NewLedger creates a ledger with the configured initial cash.
func NewLedger(runID string, cfg config.Config, instruments []domain.Instrument) *Ledger {
	shanghai := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		if inst.Shanghai {
			shanghai[inst.ID] = true
		}
	}
	return &Ledger{
		runID:    runID,
		lotSize:  cfg.LotSize,
		costs:    cfg.Costs,
		shanghai: shanghai,
		cash:     decimal.NewFromFloat(cfg.InitialCash),
		holdings: make(map[string]*domain.PositionLot),
	}
}

// costBreakdown computes the fee components for one trade side.
func (l *Ledger) costBreakdown(instrumentID string, gross decimal.Decimal, action domain.TradeAction) (commission, stampTax, transferFee, slippage decimal.Decimal) {
	commission = gross.Mul(decimal.NewFromFloat(l.costs.CommissionRate))
	if minC := decimal.NewFromFloat(l.costs.MinCommission); commission.LessThan(minC) {
		commission = minC
	}
	if action == domain.ActionSell {
		stampTax = gross.Mul(decimal.NewFromFloat(l.costs.StampTaxRate))
	}
	if l.shanghai[instrumentID] {
		transferFee = gross.Mul(decimal.NewFromFloat(l.costs.TransferFeeRate))
	}
	slippage = gross.Mul(decimal.NewFromFloat(l.costs.SlippageRate))
	return commission, stampTax, transferFee, slippage
}

// Buy executes a purchase. Shares must be a positive multiple of the
// board lot. Fails with ErrInsufficientCash when gross plus fees would
// push cash below zero; the ledger enforces this even though the
// simulator sizes orders to avoid it.
func (l *Ledger) Buy(instrumentID string, shares int64, price float64, date time.Time, sig *domain.SignalDecision) (*domain.Transaction, error) {
	if shares <= 0 || shares%l.lotSize != 0 {
		return nil, fmt.Errorf("buy %s: shares %d not a positive multiple of lot %d", instrumentID, shares, l.lotSize)
	}

	gross := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	commission, stampTax, transferFee, slippage := l.costBreakdown(instrumentID, gross, domain.ActionBuy)
	totalCost := commission.Add(stampTax).Add(transferFee).Add(slippage)

	outlay := gross.Add(totalCost)
	if outlay.GreaterThan(l.cash) {
		return nil, fmt.Errorf("%w: buy %s needs %s, have %s", ErrInsufficientCash, instrumentID, outlay.StringFixed(2), l.cash.StringFixed(2))
	}

	l.cash = l.cash.Sub(outlay)

	lot, held := l.holdings[instrumentID]
	if !held {
		l.holdings[instrumentID] = &domain.PositionLot{
			InstrumentID: instrumentID,
			Shares:       shares,
			AvgCost:      outlay.Div(decimal.NewFromInt(shares)),
			AcquiredAt:   date,
		}
	} else {
		// Weighted-average basis, buy costs included.
		oldBasis := lot.AvgCost.Mul(decimal.NewFromInt(lot.Shares))
		lot.Shares += shares
		lot.AvgCost = oldBasis.Add(outlay).Div(decimal.NewFromInt(lot.Shares))
	}

	tx := &domain.Transaction{
		TxID:         idhash.ComputeTransactionID(l.runID, instrumentID, date, domain.ActionBuy, shares),
		RunID:        l.runID,
		Date:         date,
		InstrumentID: instrumentID,
		Action:       domain.ActionBuy,
		Price:        price,
		Shares:       shares,
		GrossAmount:  gross,
		Commission:   commission,
		StampTax:     stampTax,
		TransferFee:  transferFee,
		Slippage:     slippage,
		TotalCost:    totalCost,
		Decision:     sig,
	}
	l.transactions = append(l.transactions, tx)
	return tx, nil
}

// Sell executes a disposal. Fails with ErrInsufficientPosition when
// more shares are requested than held. Partial sells release basis at
// the weighted-average lot cost, a deliberate simplification over
// FIFO/LIFO lot selection.
func (l *Ledger) Sell(instrumentID string, shares int64, price float64, date time.Time, sig *domain.SignalDecision) (*domain.Transaction, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("sell %s: shares must be positive, got %d", instrumentID, shares)
	}
	lot, held := l.holdings[instrumentID]
	if !held || lot.Shares < shares {
		have := int64(0)
		if held {
			have = lot.Shares
		}
		return nil, fmt.Errorf("%w: sell %s wants %d shares, have %d", ErrInsufficientPosition, instrumentID, shares, have)
	}

	gross := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	commission, stampTax, transferFee, slippage := l.costBreakdown(instrumentID, gross, domain.ActionSell)
	totalCost := commission.Add(stampTax).Add(transferFee).Add(slippage)

	proceeds := gross.Sub(totalCost)
	l.cash = l.cash.Add(proceeds)

	basisReleased := lot.AvgCost.Mul(decimal.NewFromInt(shares))
	lot.Shares -= shares
	if lot.Shares == 0 {
		// Zero positions leave the holdings map; the transaction log
		// retains the record.
		delete(l.holdings, instrumentID)
	}

	tx := &domain.Transaction{
		TxID:         idhash.ComputeTransactionID(l.runID, instrumentID, date, domain.ActionSell, shares),
		RunID:        l.runID,
		Date:         date,
		InstrumentID: instrumentID,
		Action:       domain.ActionSell,
		Price:        price,
		Shares:       shares,
		GrossAmount:  gross,
		Commission:   commission,
		StampTax:     stampTax,
		TransferFee:  transferFee,
		Slippage:     slippage,
		TotalCost:    totalCost,
		RealizedPnL:  proceeds.Sub(basisReleased),
		Decision:     sig,
	}
	l.transactions = append(l.transactions, tx)
	return tx, nil
}

// Valuation computes cash plus market value at the given prices.
func (l *Ledger) Valuation(prices map[string]float64) decimal.Decimal {
	total := l.cash
	for id, lot := range l.holdings {
		price, ok := prices[id]
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(lot.Shares)))
	}
	return total
}

// Snapshot records the point-in-time portfolio state. Exactly one
// snapshot is appended per call; holdings are not mutated.
func (l *Ledger) Snapshot(date time.Time, prices map[string]float64) *domain.PortfolioSnapshot {
	positions := make(map[string]int64, len(l.holdings))
	snapPrices := make(map[string]float64, len(l.holdings))
	market := decimal.Zero
	for id, lot := range l.holdings {
		positions[id] = lot.Shares
		if price, ok := prices[id]; ok {
			snapPrices[id] = price
			market = market.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(lot.Shares)))
		}
	}

	snap := &domain.PortfolioSnapshot{
		RunID:       l.runID,
		Date:        date,
		Cash:        l.cash,
		Positions:   positions,
		Prices:      snapPrices,
		MarketValue: market,
		TotalValue:  l.cash.Add(market),
	}
	l.snapshots = append(l.snapshots, snap)
	return snap
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	return l.cash
}

// Position returns the held share count for an instrument (0 if none).
func (l *Ledger) Position(instrumentID string) int64 {
	if lot, ok := l.holdings[instrumentID]; ok {
		return lot.Shares
	}
	return 0
}

// Holdings returns a copy of the active position lots.
func (l *Ledger) Holdings() []domain.PositionLot {
	out := make([]domain.PositionLot, 0, len(l.holdings))
	for _, lot := range l.holdings {
		out = append(out, *lot)
	}
	return out
}

// Transactions returns the ordered transaction log.
func (l *Ledger) Transactions() []*domain.Transaction {
	return l.transactions
}

// Snapshots returns the ordered snapshot history.
func (l *Ledger) Snapshots() []*domain.PortfolioSnapshot {
	return l.snapshots
}
