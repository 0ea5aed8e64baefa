// Command pipeline runs the full backtest workflow against storage:
// load bars, simulate, persist artifacts, and print the acceptance
// verdict.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/evaluation"
	"rotation-lab/internal/ingestion"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/pipeline"
	"rotation-lab/internal/storage"
	chstore "rotation-lab/internal/storage/clickhouse"
	"rotation-lab/internal/storage/memory"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
	"rotation-lab/internal/thresholds"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults used when empty)")
	barsPath := flag.String("bars", "", "Path to bar history CSV to seed storage (required without --clickhouse-dsn)")
	weekly := flag.Bool("weekly", false, "Resample daily input bars into weekly periods")
	thresholdsPath := flag.String("thresholds", "", "Path to threshold table YAML (defaults used when empty)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (memory stores when empty)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for bar history")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

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

	stores, err := buildStores(ctx, *postgresDSN, *clickhouseDSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize storage")
	}

	if err := seed(ctx, cfg, stores, *barsPath, *weekly, *clickhouseDSN, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed storage")
	}

	var table *thresholds.Table
	if *thresholdsPath != "" {
		table, err = thresholds.LoadTable(*thresholdsPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load threshold table")
		}
	}

	p := pipeline.New(pipeline.Options{
		Config:   cfg,
		Stores:   stores,
		Criteria: evaluation.DefaultCriteria(),
		Logger:   logger,
		Metrics:  observability.NewMetrics("rotation_lab"),
	})

	out, err := p.Run(ctx, table)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}

	logger.Info().
		Str("run_id", out.Result.RunID).
		Dur("elapsed", out.Finished.Sub(out.Started)).
		Msg("pipeline complete")
	fmt.Print(evaluation.RenderMarkdown(out.Evaluation))
}

// buildStores wires Postgres-backed stores when a DSN is given, memory
// stores otherwise. Bars come from ClickHouse when its DSN is given.
func buildStores(ctx context.Context, postgresDSN, clickhouseDSN string, logger zerolog.Logger) (pipeline.Stores, error) {
	var stores pipeline.Stores

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return stores, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return stores, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.Instruments = pgstore.NewInstrumentStore(pool)
		stores.Decisions = pgstore.NewDecisionStore(pool)
		stores.Transactions = pgstore.NewTransactionStore(pool)
		stores.Snapshots = pgstore.NewSnapshotStore(pool)
		stores.Summaries = pgstore.NewSummaryStore(pool)
	} else {
		logger.Warn().Msg("no --postgres-dsn, artifacts stay in memory")
		stores.Instruments = memory.NewInstrumentStore()
		stores.Decisions = memory.NewDecisionStore()
		stores.Transactions = memory.NewTransactionStore()
		stores.Snapshots = memory.NewSnapshotStore()
		stores.Summaries = memory.NewSummaryStore()
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return stores, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.Bars = chstore.NewBarStore(conn)
	} else {
		stores.Bars = memory.NewBarStore()
	}

	return stores, nil
}

// seed loads the configured instruments and, when reading bars from a
// CSV file, the bar history into storage. Existing rows are left alone.
func seed(ctx context.Context, cfg config.Config, stores pipeline.Stores, barsPath string, weekly bool, clickhouseDSN string, logger zerolog.Logger) error {
	for _, inst := range cfg.InstrumentList() {
		if err := stores.Instruments.Insert(ctx, &inst); err != nil && !isDuplicate(err) {
			return fmt.Errorf("insert instrument %s: %w", inst.ID, err)
		}
	}

	if barsPath == "" {
		if clickhouseDSN == "" {
			return fmt.Errorf("--bars is required without --clickhouse-dsn")
		}
		return nil
	}

	source := &ingestion.CSVSource{Path: barsPath}
	bars, err := source.Bars(ctx)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if weekly {
		bars = ingestion.ResampleWeekly(bars)
	}

	ptrs := make([]*domain.PriceBar, len(bars))
	for i := range bars {
		ptrs[i] = &bars[i]
	}
	if err := stores.Bars.InsertBulk(ctx, ptrs); err != nil && !isDuplicate(err) {
		return fmt.Errorf("insert bars: %w", err)
	}
	logger.Info().Int("bars", len(ptrs)).Msg("bar history seeded")
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, storage.ErrDuplicateKey)
}
