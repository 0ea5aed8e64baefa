// Package simulation drives the period-by-period backtest loop:
// score every instrument, apply the resulting orders against the
// portfolio ledger, snapshot, repeat.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/idhash"
	"rotation-lab/internal/metrics"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/portfolio"
	"rotation-lab/internal/scoring"
	"rotation-lab/internal/sizing"
	"rotation-lab/internal/thresholds"
)

// strategyName tags run IDs produced by this simulator.
const strategyName = "rotation-4d"

// Simulator executes backtest runs.
type Simulator struct {
	cfg      config.Config
	scorer   *scoring.Scorer
	provider *thresholds.Provider
	sizer    sizing.Policy
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// SimulatorOptions contains configuration for creating a Simulator.
type SimulatorOptions struct {
	Config   config.Config
	Provider *thresholds.Provider

	// Sizer defaults to FractionOfCash with the configured fraction.
	Sizer sizing.Policy

	Logger zerolog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
}

// NewSimulator creates a simulator.
func NewSimulator(opts SimulatorOptions) (*Simulator, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: threshold provider is required", config.ErrInvalidConfig)
	}

	sizer := opts.Sizer
	if sizer == nil {
		sizer = sizing.FractionOfCash{Fraction: opts.Config.BuyFraction}
	}

	return &Simulator{
		cfg:      opts.Config,
		scorer:   scoring.NewScorer(opts.Config.Signals),
		provider: opts.Provider,
		sizer:    sizer,
		logger:   opts.Logger.With().Str("component", "simulator").Logger(),
		metrics:  opts.Metrics,
	}, nil
}

// Result is the complete output of one run.
type Result struct {
	RunID string

	Decisions    []*domain.SignalDecision
	Transactions []*domain.Transaction
	Snapshots    []*domain.PortfolioSnapshot
	Summary      *domain.PerformanceSummary
}

// Run executes a full backtest over the bar history.
// Steps:
//  1. Build the aligned series set (fatal on misaligned history)
//  2. Derive the deterministic run ID
//  3. Record the initial snapshot
//  4. For each period: score, apply orders, snapshot
//  5. Aggregate the performance summary
func (s *Simulator) Run(ctx context.Context, instruments []domain.Instrument, bars map[string][]domain.PriceBar) (*Result, error) {
	started := time.Now()

	// 1. Build the aligned series set
	set, err := BuildSeriesSet(instruments, bars, s.cfg)
	if err != nil {
		s.countRun("error")
		return nil, err
	}
	if len(set.Dates) == 0 {
		s.countRun("error")
		return nil, fmt.Errorf("%w: no periods to simulate", ErrDataAlignment)
	}

	// 2. Derive the deterministic run ID
	startDate := set.Dates[0]
	endDate := set.Dates[len(set.Dates)-1]
	runID := idhash.ComputeRunID(strategyName, startDate, endDate,
		int64(s.cfg.InitialCash*100), len(instruments))

	logger := s.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Time("start", startDate).
		Time("end", endDate).
		Int("periods", len(set.Dates)).
		Int("instruments", len(instruments)).
		Msg("starting backtest run")

	ledger := portfolio.NewLedger(runID, s.cfg, instruments)
	result := &Result{RunID: runID}

	// Per-run threshold cache. Resolution failures are cached too so
	// the warning fires once per instrument, not once per period.
	cache := newThresholdCache(s.provider)

	// 3. Record the initial snapshot, dated one period before trading
	// starts so the history holds N+1 entries.
	ledger.Snapshot(startDate.AddDate(0, 0, -7), nil)

	// 4. Period loop
	for _, date := range set.Dates {
		if err := ctx.Err(); err != nil {
			s.countRun("canceled")
			return nil, err
		}

		decisions := s.scorePeriod(instruments, set, date, cache, logger)
		result.Decisions = append(result.Decisions, decisions...)

		prices := periodPrices(instruments, set, date)
		s.applyOrders(ledger, decisions, prices, logger)

		snap := ledger.Snapshot(date, prices)
		if s.metrics != nil {
			s.metrics.PeriodsSimulated.Inc()
			v, _ := snap.TotalValue.Float64()
			s.metrics.PortfolioValue.Set(v)
		}
	}

	result.Transactions = ledger.Transactions()
	result.Snapshots = ledger.Snapshots()

	// 5. Aggregate the performance summary
	summary, err := metrics.NewAggregator().Summarize(runID, result.Snapshots, result.Transactions)
	if err != nil {
		s.countRun("error")
		return nil, fmt.Errorf("summarize run: %w", err)
	}
	result.Summary = summary

	if s.metrics != nil {
		s.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}
	s.countRun("ok")

	logger.Info().
		Float64("total_return", summary.TotalReturn).
		Float64("max_drawdown", summary.MaxDrawdown).
		Int("trades", summary.TradeCount).
		Dur("elapsed", time.Since(started)).
		Msg("backtest run complete")

	return result, nil
}

// scorePeriod scores every instrument with a bar this period. With
// Workers > 1 scoring fans out across goroutines; results are always
// returned sorted by instrument ID so order application stays
// deterministic.
func (s *Simulator) scorePeriod(instruments []domain.Instrument, set *SeriesSet, date time.Time, cache *thresholdCache, logger zerolog.Logger) []*domain.SignalDecision {
	started := time.Now()

	type task struct {
		inst   domain.Instrument
		period domain.PeriodData
	}
	var tasks []task
	for _, inst := range instruments {
		period, ok := set.At(inst.ID, date)
		if !ok {
			// No bar this period; the instrument sits out.
			continue
		}
		tasks = append(tasks, task{inst, period})
	}

	decisions := make([]*domain.SignalDecision, len(tasks))
	score := func(i int) {
		t := tasks[i]
		ts, err := cache.resolve(t.inst.ID)
		if err != nil {
			// Recoverable: record an annotated HOLD and move on.
			decisions[i] = &domain.SignalDecision{
				InstrumentID: t.inst.ID,
				Date:         t.period.Bar.Date,
				Kind:         domain.DecisionHold,
				Indicators:   t.period.Indicators,
				Err:          err.Error(),
			}
			return
		}
		decisions[i] = s.scorer.Score(t.inst, t.period, ts)
	}

	workers := s.cfg.Workers
	if workers <= 1 || len(tasks) < 2 {
		for i := range tasks {
			score(i)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i := range tasks {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				score(i)
				<-sem
			}(i)
		}
		wg.Wait()
	}

	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].InstrumentID < decisions[j].InstrumentID
	})

	for _, d := range decisions {
		if d.Err != "" {
			logger.Warn().
				Str("instrument", d.InstrumentID).
				Str("error", d.Err).
				Msg("scoring degraded to HOLD")
		}
		if s.metrics != nil {
			s.metrics.DecisionsScored.WithLabelValues(string(d.Kind)).Inc()
			if d.Err != "" {
				s.metrics.ScoringErrors.Inc()
			}
			if d.Override {
				s.metrics.OverridesTriggered.Inc()
			}
		}
	}
	if s.metrics != nil {
		s.metrics.ScoringLatency.Observe(time.Since(started).Seconds())
	}

	return decisions
}

// applyOrders executes the period's decisions against the ledger.
// Sells run before buys so liquidations free cash for the same
// period's purchases. Decisions arrive sorted by instrument ID and
// are applied in that order within each pass.
func (s *Simulator) applyOrders(ledger *portfolio.Ledger, decisions []*domain.SignalDecision, prices map[string]float64, logger zerolog.Logger) {
	for _, d := range decisions {
		if d.Kind != domain.DecisionSell {
			continue
		}
		held := ledger.Position(d.InstrumentID)
		if held == 0 {
			// Sell signal with nothing to sell is a no-op, not an error.
			s.countRejection("no_position")
			continue
		}
		// Sells always liquidate the full position.
		tx, err := ledger.Sell(d.InstrumentID, held, prices[d.InstrumentID], d.Date, d)
		if err != nil {
			s.rejectOrder(logger, d, err)
			continue
		}
		s.executedOrder(logger, tx)
	}

	for _, d := range decisions {
		if d.Kind != domain.DecisionBuy {
			continue
		}
		price := prices[d.InstrumentID]
		if price <= 0 {
			s.countRejection("no_price")
			continue
		}
		shares := s.sizer.Shares(d, ledger.Cash(), price, s.cfg.LotSize)
		if shares == 0 {
			s.countRejection("zero_size")
			continue
		}
		tx, err := ledger.Buy(d.InstrumentID, shares, price, d.Date, d)
		if err != nil {
			s.rejectOrder(logger, d, err)
			continue
		}
		s.executedOrder(logger, tx)
	}
}

func (s *Simulator) executedOrder(logger zerolog.Logger, tx *domain.Transaction) {
	logger.Debug().
		Str("instrument", tx.InstrumentID).
		Str("action", string(tx.Action)).
		Int64("shares", tx.Shares).
		Float64("price", tx.Price).
		Msg("order executed")
	if s.metrics != nil {
		s.metrics.OrdersExecuted.WithLabelValues(string(tx.Action)).Inc()
	}
}

func (s *Simulator) rejectOrder(logger zerolog.Logger, d *domain.SignalDecision, err error) {
	reason := "other"
	switch {
	case errors.Is(err, portfolio.ErrInsufficientCash):
		reason = "insufficient_cash"
	case errors.Is(err, portfolio.ErrInsufficientPosition):
		reason = "insufficient_position"
	}
	logger.Warn().
		Str("instrument", d.InstrumentID).
		Str("kind", string(d.Kind)).
		Err(err).
		Msg("order rejected")
	s.countRejection(reason)
}

func (s *Simulator) countRejection(reason string) {
	if s.metrics != nil {
		s.metrics.OrdersRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Simulator) countRun(status string) {
	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(status).Inc()
	}
}

// periodPrices collects each instrument's close for snapshot valuation.
// Instruments without a bar this period keep their last known price in
// valuation only if the ledger's snapshot finds one; here they are
// simply absent.
func periodPrices(instruments []domain.Instrument, set *SeriesSet, date time.Time) map[string]float64 {
	prices := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		if p, ok := set.At(inst.ID, date); ok {
			prices[inst.ID] = p.Bar.Close
		}
	}
	return prices
}

// thresholdCache memoizes threshold resolution for one run.
type thresholdCache struct {
	mu       sync.Mutex
	provider *thresholds.Provider
	sets     map[string]domain.ThresholdSet
	errs     map[string]error
}

func newThresholdCache(provider *thresholds.Provider) *thresholdCache {
	return &thresholdCache{
		provider: provider,
		sets:     make(map[string]domain.ThresholdSet),
		errs:     make(map[string]error),
	}
}

func (c *thresholdCache) resolve(instrumentID string) (domain.ThresholdSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.sets[instrumentID]; ok {
		return ts, nil
	}
	if err, ok := c.errs[instrumentID]; ok {
		return domain.ThresholdSet{}, err
	}

	ts, err := c.provider.Resolve(instrumentID, time.Time{})
	if err != nil {
		c.errs[instrumentID] = err
		return domain.ThresholdSet{}, err
	}
	c.sets[instrumentID] = ts
	return ts, nil
}
