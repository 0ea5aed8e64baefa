// Command report renders a stored backtest run as markdown or CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"rotation-lab/internal/reporting"
	"rotation-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Run ID to report on (required)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, equity-csv, trades-csv")
	outPath := flag.String("out", "", "Output file (defaults to stdout)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if *runID == "" {
		logger.Fatal().Msg("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		postgres.NewSummaryStore(pool),
		postgres.NewSnapshotStore(pool),
		postgres.NewTransactionStore(pool),
		postgres.NewDecisionStore(pool),
	)

	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", *runID).Msg("generate report")
	}

	var rendered string
	switch *format {
	case "markdown":
		rendered = reporting.RenderMarkdown(report)
	case "equity-csv":
		rendered = reporting.RenderEquityCSV(report.EquityCurve)
	case "trades-csv":
		rendered = reporting.RenderTradesCSV(report.Trades)
	default:
		logger.Fatal().Str("format", *format).Msg("unknown format")
	}

	if *outPath == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
	logger.Info().Str("path", *outPath).Msg("report written")
}
