// Package main runs one detection pass for a single event date:
// load observations → build baselines → score → persist anomalies,
// then roll the day's observations into the daily stats history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Karchensky/insider-trades-sub000/internal/baseline"
	"github.com/Karchensky/insider-trades-sub000/internal/config"
	"github.com/Karchensky/insider-trades-sub000/internal/detector"
	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/factors"
	"github.com/Karchensky/insider-trades-sub000/internal/scoring"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
	chstore "github.com/Karchensky/insider-trades-sub000/internal/storage/clickhouse"
	"github.com/Karchensky/insider-trades-sub000/internal/storage/memory"
	"github.com/Karchensky/insider-trades-sub000/internal/storage/migrations"
	pgstore "github.com/Karchensky/insider-trades-sub000/internal/storage/postgres"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	dateFlag := flag.String("date", "", "Event date YYYY-MM-DD (default: today UTC)")
	strategyFlag := flag.String("strategy", "cappedsum", "Scoring strategy: weighted or cappedsum")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "detect").Logger()
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}

	eventDate := domain.DateOf(time.Now())
	if *dateFlag != "" {
		eventDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			logger.Fatal().Err(err).Str("date", *dateFlag).Msg("parse -date")
		}
	}

	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal().Msg("SCANNER_POSTGRES_DSN and SCANNER_CLICKHOUSE_DSN are required (or pass -use-memory)")
	}

	ctx := context.Background()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	strategy, err := buildStrategy(*strategyFlag, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build strategy")
	}

	d, err := detector.New(detector.Options{
		Observations: stores.observations,
		DailyStats:   stores.dailyStats,
		Anomalies:    stores.anomalies,
		Strategy:     strategy,
		Aggregator:   baseline.NewAggregator(cfg.BaselineWindowDays),
		Workers:      cfg.Workers,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create detector")
	}

	res, err := d.Run(ctx, eventDate)
	if err != nil {
		logger.Fatal().Err(err).Msg("detection pass failed")
	}

	for _, rec := range res.Records {
		logger.Info().
			Str("symbol", rec.Symbol).
			Str("direction", rec.Direction).
			Float64("score", rec.Score).
			Str("tier", string(rec.Tier)).
			Msg("anomaly")
	}

	// Fold today's observations into the history the next passes baseline on.
	if err := rollupDay(ctx, stores, cfg, res.EventDate); err != nil {
		logger.Error().Err(err).Msg("daily stats rollup failed")
		os.Exit(1)
	}

	if len(res.StoreErrors) > 0 {
		for _, msg := range res.StoreErrors {
			logger.Error().Msg(msg)
		}
		os.Exit(1)
	}
}

// scannerStores groups the three storage backends a pass touches.
type scannerStores struct {
	observations storage.OptionObservationStore
	dailyStats   storage.DailyStatStore
	anomalies    storage.AnomalyStore
}

// createStores wires either in-memory stores or the PostgreSQL/ClickHouse
// pair, applying migrations on the way.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*scannerStores, func(), error) {
	if useMemory {
		return &scannerStores{
			observations: memory.NewObservationStore(),
			dailyStats:   memory.NewDailyStatStore(),
			anomalies:    memory.NewAnomalyStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &scannerStores{
		observations: pgstore.NewObservationStore(pool),
		dailyStats:   chstore.NewDailyStatStore(chConn),
		anomalies:    pgstore.NewAnomalyStore(pool),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// buildStrategy constructs the requested strategy with a shared extractor.
func buildStrategy(name string, cfg *config.Config) (scoring.Strategy, error) {
	ext := factors.NewExtractor(factors.Options{
		OTMThreshold:  cfg.OTMThresholdPct,
		ShortTermDays: cfg.ShortTermDays,
		ThisWeekDays:  cfg.ThisWeekDays,
	})
	switch strings.ToLower(name) {
	case "weighted":
		return scoring.NewWeightedStrategy(scoring.WeightedOptions{
			Extractor:      ext,
			MinReportScore: cfg.MinReportScore,
		}), nil
	case "cappedsum", "capped_sum":
		return scoring.NewCappedSumStrategy(scoring.CappedSumOptions{
			Extractor:     ext,
			MinVolumeGate: cfg.MinVolumeGate,
			Threshold:     cfg.HighConvictionThreshold,
		}), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want weighted or cappedsum)", name)
	}
}

// rollupDay folds the event date's observations into daily stats.
func rollupDay(ctx context.Context, stores *scannerStores, cfg *config.Config, day time.Time) error {
	obs, err := stores.observations.GetByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("load observations for rollup: %w", err)
	}
	stats := baseline.DailyStatsFromObservations(day, obs, baseline.RollupOptions{
		ShortTermDays: cfg.ShortTermDays,
		OTMThreshold:  cfg.OTMThresholdPct,
	})
	if len(stats) == 0 {
		return nil
	}
	if err := stores.dailyStats.InsertBulk(ctx, stats); err != nil {
		return fmt.Errorf("store daily stats: %w", err)
	}
	return nil
}
