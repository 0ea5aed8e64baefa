// Command thresholds builds the industry threshold table offline from
// historical bars and writes it as YAML for later runs to load.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/indicators"
	"rotation-lab/internal/ingestion"
	"rotation-lab/internal/thresholds"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	barsPath := flag.String("bars", "", "Path to bar history CSV (required)")
	weekly := flag.Bool("weekly", false, "Resample daily input bars into weekly periods")
	outPath := flag.String("out", "thresholds.yaml", "Output path for the threshold table")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

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

	source := &ingestion.CSVSource{Path: *barsPath}
	bars, err := source.Bars(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("load bars")
	}
	if *weekly {
		bars = ingestion.ResampleWeekly(bars)
	}

	samples := collectSamples(cfg, bars)
	if len(samples) == 0 {
		logger.Fatal().Msg("no industries with bar history")
	}

	table, err := thresholds.BuildTable(samples, thresholds.DefaultCalcOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("build threshold table")
	}

	if err := thresholds.SaveTable(*outPath, table); err != nil {
		logger.Fatal().Err(err).Msg("save threshold table")
	}

	fmt.Printf("wrote %d industries to %s\n", table.Industries(), *outPath)
}

// collectSamples pools each industry's defined RSI observations across
// all of its instruments.
func collectSamples(cfg config.Config, bars []domain.PriceBar) []thresholds.Sample {
	industryOf := make(map[string]string)
	for _, inst := range cfg.InstrumentList() {
		industryOf[inst.ID] = inst.Industry
	}

	byInstrument := make(map[string][]float64)
	for _, b := range bars {
		byInstrument[b.InstrumentID] = append(byInstrument[b.InstrumentID], b.Close)
	}

	pooled := make(map[string][]float64)
	for id, closes := range byInstrument {
		industry, ok := industryOf[id]
		if !ok {
			continue
		}
		for _, v := range indicators.RSI(closes, cfg.Indicators.RSIPeriod) {
			if v.Defined {
				pooled[industry] = append(pooled[industry], v.V)
			}
		}
	}

	samples := make([]thresholds.Sample, 0, len(pooled))
	for industry, rsi := range pooled {
		samples = append(samples, thresholds.Sample{Industry: industry, RSI: rsi})
	}
	return samples
}
