// Command server runs all components as one long-lived service:
// continuous quote ingestion over WebSocket, scheduled backtest runs,
// and scheduled report generation, with health and metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/evaluation"
	"rotation-lab/internal/ingestion"
	"rotation-lab/internal/marketdata"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/pipeline"
	"rotation-lab/internal/reporting"
	"rotation-lab/internal/storage"
	chstore "rotation-lab/internal/storage/clickhouse"
	"rotation-lab/internal/storage/memory"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
	"rotation-lab/internal/thresholds"
)

// Server holds all components of the unified service.
type Server struct {
	cfg              config.Config
	wsEndpoint       string
	outputDir        string
	thresholdsPath   string
	pipelineInterval time.Duration
	reportInterval   time.Duration
	flushInterval    time.Duration

	stores  pipeline.Stores
	metrics *observability.Metrics
	logger  zerolog.Logger

	// State
	mu              sync.Mutex
	flushed         map[string]bool // instrument|date keys already persisted
	lastRunID       string
	lastPipelineRun time.Time
	lastReportRun   time.Time
	pipelineRunning bool
	reportRunning   bool
	started         time.Time
	pipelineRuns    int
	reportRuns      int
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("ROTATION_CONFIG"), "Path to YAML config")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("QUOTE_WS_ENDPOINT"), "Quote feed WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	thresholdsPath := flag.String("thresholds", "", "Path to threshold table YAML (defaults used when empty)")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	pipelineInterval := flag.Duration("pipeline-interval", 1*time.Hour, "Backtest run interval")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval")
	flushInterval := flag.Duration("flush-interval", 5*time.Minute, "Collected bar flush interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health, status and metrics")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if *wsEndpoint == "" {
		logger.Fatal().Msg("--ws-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
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

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	server := &Server{
		cfg:              cfg,
		wsEndpoint:       *wsEndpoint,
		outputDir:        *outputDir,
		thresholdsPath:   *thresholdsPath,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		flushInterval:    *flushInterval,
		stores:           stores,
		metrics:          observability.NewMetrics("rotation_lab"),
		logger:           logger,
		flushed:          make(map[string]bool),
		started:          time.Now().UTC(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*httpAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// createStores wires either in-memory or Postgres/ClickHouse stores,
// running migrations on the database path.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (pipeline.Stores, func(), error) {
	if useMemory {
		stores := pipeline.Stores{
			Instruments:  memory.NewInstrumentStore(),
			Bars:         memory.NewBarStore(),
			Decisions:    memory.NewDecisionStore(),
			Transactions: memory.NewTransactionStore(),
			Snapshots:    memory.NewSnapshotStore(),
			Summaries:    memory.NewSummaryStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return pipeline.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := pipeline.Stores{
		Instruments:  pgstore.NewInstrumentStore(pool),
		Bars:         chstore.NewBarStore(chConn),
		Decisions:    pgstore.NewDecisionStore(pool),
		Transactions: pgstore.NewTransactionStore(pool),
		Snapshots:    pgstore.NewSnapshotStore(pool),
		Summaries:    pgstore.NewSummaryStore(pool),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// Run starts ingestion and both schedulers, returning on the first
// component error or context cancellation.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("starting unified server")

	if err := s.seedInstruments(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 3)

	go func() {
		if err := s.runIngestion(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("ingestion: %w", err)
		}
	}()
	go func() {
		if err := s.runPipelineScheduler(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()
	go func() {
		if err := s.runReportScheduler(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) seedInstruments(ctx context.Context) error {
	for _, inst := range s.cfg.InstrumentList() {
		err := s.stores.Instruments.Insert(ctx, &inst)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert instrument %s: %w", inst.ID, err)
		}
	}
	return nil
}

// runIngestion subscribes to the quote feed and periodically flushes
// completed daily bars into the bar store.
func (s *Server) runIngestion(ctx context.Context) error {
	client, err := marketdata.NewWSClient(ctx, s.wsEndpoint, nil, s.logger)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer client.Close()

	instruments := make([]string, 0, len(s.cfg.Instruments))
	for _, inst := range s.cfg.InstrumentList() {
		instruments = append(instruments, inst.ID)
	}
	if err := client.Subscribe(instruments); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info().Int("instruments", len(instruments)).Msg("ingestion started")

	collector := ingestion.NewTickCollector()
	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- collector.Consume(ctx, client.Ticks())
	}()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flushBars(ctx, collector, true)
			return ctx.Err()
		case err := <-consumeDone:
			s.flushBars(ctx, collector, true)
			return err
		case <-ticker.C:
			s.flushBars(ctx, collector, false)
		}
	}
}

// flushBars persists collected bars not yet written. The bar for the
// current day is still accumulating ticks and is held back unless
// final is set.
func (s *Server) flushBars(ctx context.Context, collector *ingestion.TickCollector, final bool) {
	today := domain.DateKey(time.Now().UTC())

	s.mu.Lock()
	var pending []*domain.PriceBar
	for _, bar := range collector.Bars() {
		key := bar.InstrumentID + "|" + domain.DateKey(bar.Date)
		if s.flushed[key] {
			continue
		}
		if !final && domain.DateKey(bar.Date) == today {
			continue
		}
		b := bar
		pending = append(pending, &b)
		s.flushed[key] = true
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if err := s.stores.Bars.InsertBulk(ctx, pending); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Error().Err(err).Int("bars", len(pending)).Msg("flush bars")
		return
	}
	s.logger.Info().Int("bars", len(pending)).Msg("bars persisted")
}

// runPipelineScheduler runs the backtest pipeline on a fixed interval.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.pipelineInterval).Msg("starting pipeline scheduler")

	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Info().Msg("pipeline already running, skipping")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now().UTC()
		s.pipelineRuns++
		s.mu.Unlock()
	}()

	var table *thresholds.Table
	if s.thresholdsPath != "" {
		var err error
		table, err = thresholds.LoadTable(s.thresholdsPath)
		if err != nil {
			s.logger.Error().Err(err).Msg("load threshold table")
			return
		}
	}

	p := pipeline.New(pipeline.Options{
		Config:   s.cfg,
		Stores:   s.stores,
		Criteria: evaluation.DefaultCriteria(),
		Logger:   s.logger,
		Metrics:  s.metrics,
	})

	out, err := p.Run(ctx, table)
	if err != nil {
		s.logger.Error().Err(err).Msg("pipeline run failed")
		return
	}

	s.mu.Lock()
	s.lastRunID = out.Result.RunID
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", out.Result.RunID).
		Str("verdict", string(out.Evaluation.Verdict)).
		Dur("elapsed", out.Finished.Sub(out.Started)).
		Msg("pipeline run complete")
}

// runReportScheduler generates reports on a fixed interval, starting
// after the first pipeline run has had a chance to complete.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.reportInterval).Msg("starting report scheduler")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
	}
	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Info().Msg("report generation already running, skipping")
		return
	}
	runID := s.lastRunID
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now().UTC()
		s.reportRuns++
		s.mu.Unlock()
	}()

	if runID == "" {
		s.logger.Info().Msg("no completed run yet, skipping report")
		return
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.logger.Error().Err(err).Msg("create output directory")
		return
	}

	gen := reporting.NewGenerator(s.stores.Summaries, s.stores.Snapshots, s.stores.Transactions, s.stores.Decisions)
	report, err := gen.Generate(ctx, runID)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("generate report")
		return
	}

	files := map[string]string{
		"REPORT.md":  reporting.RenderMarkdown(report),
		"equity.csv": reporting.RenderEquityCSV(report.EquityCurve),
		"trades.csv": reporting.RenderTradesCSV(report.Trades),
	}
	for name, content := range files {
		path := filepath.Join(s.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("write report file")
			return
		}
	}

	s.logger.Info().Str("run_id", runID).Str("dir", s.outputDir).Msg("reports generated")
}

// startHTTPServer serves health, status and Prometheus metrics.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("HTTP server error")
	}
}

// StatusResponse is the JSON body for /status.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastRunID       string    `json:"last_run_id,omitempty"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	ReportRunning   bool      `json:"report_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastRunID:       s.lastRunID,
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		PipelineRunning: s.pipelineRunning,
		ReportRunning:   s.reportRunning,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env when present.
// Existing variables are never overridden.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(parts[1]))
		}
	}
}
