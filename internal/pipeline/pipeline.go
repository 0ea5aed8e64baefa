// Package pipeline wires the full run end to end: verify the bar
// history, resolve thresholds, simulate, persist every artifact, and
// grade the result. Each stage only runs if the previous one
// succeeded; persistence is all-or-nothing per artifact type.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/evaluation"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/simulation"
	"rotation-lab/internal/storage"
	"rotation-lab/internal/thresholds"
	"rotation-lab/internal/verification"
)

// Stores groups the persistence targets the pipeline writes to. Any
// nil store skips its artifact.
type Stores struct {
	Instruments  storage.InstrumentStore
	Bars         storage.BarStore
	Decisions    storage.DecisionStore
	Transactions storage.TransactionStore
	Snapshots    storage.SnapshotStore
	Summaries    storage.SummaryStore
}

// Pipeline executes a complete backtest workflow.
type Pipeline struct {
	cfg      config.Config
	stores   Stores
	criteria evaluation.Criteria
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// Options contains configuration for creating a Pipeline.
type Options struct {
	Config   config.Config
	Stores   Stores
	Criteria evaluation.Criteria
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		cfg:      opts.Config,
		stores:   opts.Stores,
		criteria: opts.Criteria,
		logger:   opts.Logger.With().Str("component", "pipeline").Logger(),
		metrics:  opts.Metrics,
	}
}

// Output is everything one pipeline execution produced.
type Output struct {
	Result     *simulation.Result
	Evaluation *evaluation.Result
	Started    time.Time
	Finished   time.Time
}

// Run executes the workflow.
// Steps:
//  1. Load instruments and bar history from storage
//  2. Verify bar integrity
//  3. Build the threshold provider
//  4. Simulate
//  5. Persist decisions, transactions, snapshots, summary
//  6. Evaluate against acceptance criteria
func (p *Pipeline) Run(ctx context.Context, table *thresholds.Table) (*Output, error) {
	out := &Output{Started: time.Now().UTC()}

	// 1. Load instruments and bar history
	instruments, bars, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Verify bar integrity
	if err := p.verify(bars); err != nil {
		return nil, err
	}

	// 3. Build the threshold provider
	if table == nil {
		industries := make([]string, 0, len(instruments))
		for _, inst := range instruments {
			industries = append(industries, inst.Industry)
		}
		table = thresholds.NewTableWithDefaults(industries...)
		p.logger.Info().Msg("no threshold table supplied, using defaults")
	}
	provider := thresholds.NewProvider(table, instruments)

	// 4. Simulate
	sim, err := simulation.NewSimulator(simulation.SimulatorOptions{
		Config:   p.cfg,
		Provider: provider,
		Logger:   p.logger,
		Metrics:  p.metrics,
	})
	if err != nil {
		return nil, err
	}
	result, err := sim.Run(ctx, instruments, bars)
	if err != nil {
		return nil, err
	}
	out.Result = result

	// 5. Persist artifacts
	if err := p.persist(ctx, result); err != nil {
		return nil, err
	}

	// 6. Evaluate
	out.Evaluation = evaluation.NewEvaluator(p.criteria).Evaluate(result.Summary)
	out.Finished = time.Now().UTC()

	p.logger.Info().
		Str("run_id", result.RunID).
		Str("verdict", string(out.Evaluation.Verdict)).
		Msg("pipeline complete")

	return out, nil
}

func (p *Pipeline) load(ctx context.Context) ([]domain.Instrument, map[string][]domain.PriceBar, error) {
	stored, err := p.stores.Instruments.GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load instruments: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil, fmt.Errorf("no instruments in storage")
	}

	instruments := make([]domain.Instrument, len(stored))
	bars := make(map[string][]domain.PriceBar, len(stored))
	for i, inst := range stored {
		instruments[i] = *inst

		history, err := p.stores.Bars.GetByInstrument(ctx, inst.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load bars for %s: %w", inst.ID, err)
		}
		flat := make([]domain.PriceBar, len(history))
		for j, b := range history {
			flat[j] = *b
		}
		bars[inst.ID] = flat
	}
	return instruments, bars, nil
}

func (p *Pipeline) verify(bars map[string][]domain.PriceBar) error {
	var all []domain.PriceBar
	for _, history := range bars {
		all = append(all, history...)
	}

	// Spot problems before the run trades on them.
	if errs := verification.CheckBars(all); len(errs) > 0 {
		for _, e := range errs {
			p.logger.Error().Str("violation", e).Msg("bar integrity check failed")
		}
		return fmt.Errorf("bar history failed integrity check: %d violations", len(errs))
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, result *simulation.Result) error {
	if p.stores.Decisions != nil {
		if err := p.stores.Decisions.InsertBulk(ctx, result.RunID, result.Decisions); err != nil {
			return fmt.Errorf("persist decisions: %w", err)
		}
	}
	if p.stores.Transactions != nil {
		if err := p.stores.Transactions.InsertBulk(ctx, result.Transactions); err != nil {
			return fmt.Errorf("persist transactions: %w", err)
		}
	}
	if p.stores.Snapshots != nil {
		if err := p.stores.Snapshots.InsertBulk(ctx, result.Snapshots); err != nil {
			return fmt.Errorf("persist snapshots: %w", err)
		}
	}
	if p.stores.Summaries != nil {
		if err := p.stores.Summaries.Insert(ctx, result.Summary); err != nil {
			return fmt.Errorf("persist summary: %w", err)
		}
	}
	return nil
}
