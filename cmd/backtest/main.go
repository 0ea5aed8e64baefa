// Command backtest runs one simulation over a bar history and prints
// the performance summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/ingestion"
	"rotation-lab/internal/simulation"
	"rotation-lab/internal/storage/memory"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
	"rotation-lab/internal/thresholds"
	"rotation-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (defaults used when empty)")
	barsPath := flag.String("bars", "", "Path to bar history CSV (required)")
	weekly := flag.Bool("weekly", false, "Resample daily input bars into weekly periods")
	thresholdsPath := flag.String("thresholds", "", "Path to threshold table YAML (defaults used when empty)")

	// Persistence
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for --persist")
	persistResult := flag.Bool("persist", false, "Persist run artifacts to storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	logger := newLogger(*verbose)

	if *barsPath == "" {
		logger.Fatal().Msg("--bars is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Load bars
	source := &ingestion.CSVSource{Path: *barsPath}
	flat, err := source.Bars(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load bars")
	}
	if *weekly {
		flat = ingestion.ResampleWeekly(flat)
	}
	if errs := verification.CheckBars(flat); len(errs) > 0 {
		for _, e := range errs {
			logger.Error().Str("violation", e).Msg("bar integrity check failed")
		}
		logger.Fatal().Int("violations", len(errs)).Msg("refusing to run on corrupted history")
	}

	instruments := cfg.InstrumentList()
	bars := make(map[string][]domain.PriceBar, len(instruments))
	for _, b := range flat {
		bars[b.InstrumentID] = append(bars[b.InstrumentID], b)
	}

	// Threshold table
	var table *thresholds.Table
	if *thresholdsPath != "" {
		table, err = thresholds.LoadTable(*thresholdsPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load threshold table")
		}
	} else {
		industries := make([]string, 0, len(instruments))
		for _, inst := range instruments {
			industries = append(industries, inst.Industry)
		}
		table = thresholds.NewTableWithDefaults(industries...)
	}

	sim, err := simulation.NewSimulator(simulation.SimulatorOptions{
		Config:   cfg,
		Provider: thresholds.NewProvider(table, instruments),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create simulator")
	}

	result, err := sim.Run(ctx, instruments, bars)
	if err != nil {
		logger.Fatal().Err(err).Msg("run backtest")
	}

	if *persistResult {
		if err := persist(ctx, *postgresDSN, result, logger); err != nil {
			logger.Fatal().Err(err).Msg("persist run")
		}
	}

	printSummary(result, *outputJSON)
}

func persist(ctx context.Context, dsn string, result *simulation.Result, logger zerolog.Logger) error {
	if dsn == "" {
		// No DSN: exercise the memory stores so --persist still
		// validates the artifacts, then warn.
		store := memory.NewTransactionStore()
		if err := store.InsertBulk(ctx, result.Transactions); err != nil {
			return err
		}
		logger.Warn().Msg("--persist without --postgres-dsn keeps artifacts in memory only")
		return nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	if err := pgstore.NewDecisionStore(pool).InsertBulk(ctx, result.RunID, result.Decisions); err != nil {
		return err
	}
	if err := pgstore.NewTransactionStore(pool).InsertBulk(ctx, result.Transactions); err != nil {
		return err
	}
	if err := pgstore.NewSnapshotStore(pool).InsertBulk(ctx, result.Snapshots); err != nil {
		return err
	}
	return pgstore.NewSummaryStore(pool).Insert(ctx, result.Summary)
}

func printSummary(result *simulation.Result, asJSON bool) {
	s := result.Summary
	if asJSON {
		out, _ := json.MarshalIndent(s, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Run:               %s\n", s.RunID)
	fmt.Printf("Period:            %s to %s (%d periods)\n",
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"), s.Periods)
	fmt.Printf("Initial value:     %.2f\n", s.InitialValue)
	fmt.Printf("Final value:       %.2f\n", s.FinalValue)
	fmt.Printf("Total return:      %.2f%%\n", s.TotalReturn*100)
	fmt.Printf("Annualized return: %.2f%%\n", s.AnnualizedReturn*100)
	fmt.Printf("Max drawdown:      %.2f%%\n", s.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:      %.4f\n", s.SharpeRatio)
	fmt.Printf("Trades:            %d (%d buys, %d sells)\n", s.TradeCount, s.BuyCount, s.SellCount)
	fmt.Printf("Win rate:          %.2f%%\n", s.WinRate*100)
	fmt.Printf("Total costs:       %.2f\n", s.TotalCosts)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
