// Command ingest loads bar history into storage, either from a CSV
// export or by collecting live quote ticks over WebSocket.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/ingestion"
	"rotation-lab/internal/marketdata"
	"rotation-lab/internal/storage"
	chstore "rotation-lab/internal/storage/clickhouse"
	"rotation-lab/internal/storage/memory"
	"rotation-lab/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	csvPath := flag.String("csv", "", "Path to bar history CSV")
	wsEndpoint := flag.String("ws", "", "WebSocket quote endpoint (collects ticks until interrupted)")
	weekly := flag.Bool("weekly", false, "Resample daily bars into weekly periods before storing")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	if *csvPath == "" && *wsEndpoint == "" {
		logger.Fatal().Msg("one of --csv or --ws is required")
	}
	if *csvPath != "" && *wsEndpoint != "" {
		logger.Fatal().Msg("--csv and --ws are mutually exclusive")
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

	var barStore storage.BarStore = memory.NewBarStore()
	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal().Msg("--clickhouse-dsn is required when not using --use-memory")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations")
		}
		defer conn.Close()
		barStore = chstore.NewBarStore(conn)
	}

	var source ingestion.Source
	if *csvPath != "" {
		source = &ingestion.CSVSource{Path: *csvPath}
	} else {
		source = newWSSource(ctx, *wsEndpoint, *configPath, logger)
	}

	ingestor := ingestion.NewIngestor(ingestion.IngestorOptions{
		Source:   source,
		BarStore: barStore,
		Weekly:   *weekly,
		Logger:   logger,
	})

	n, err := ingestor.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("ingest")
	}
	logger.Info().Int("bars", n).Msg("done")
}

// wsSource adapts the tick collector into an ingestion.Source: it
// subscribes, collects until the context is canceled, then hands the
// rolled-up daily bars to the ingestor.
type wsSource struct {
	endpoint    string
	instruments []string
	logger      zerolog.Logger
}

func newWSSource(_ context.Context, endpoint, configPath string, logger zerolog.Logger) *wsSource {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
	}
	instruments := make([]string, 0, len(cfg.Instruments))
	for _, inst := range cfg.InstrumentList() {
		instruments = append(instruments, inst.ID)
	}
	return &wsSource{endpoint: endpoint, instruments: instruments, logger: logger}
}

func (s *wsSource) Bars(ctx context.Context) ([]domain.PriceBar, error) {
	client, err := marketdata.NewWSClient(ctx, s.endpoint, nil, s.logger)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Subscribe(s.instruments); err != nil {
		return nil, err
	}
	s.logger.Info().Int("instruments", len(s.instruments)).Msg("collecting ticks, interrupt to stop")

	collector := ingestion.NewTickCollector()
	if err := collector.Consume(ctx, client.Ticks()); err != nil && ctx.Err() == nil {
		return nil, err
	}
	return collector.Bars(), nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
