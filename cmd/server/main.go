// Package main runs the scanner as a long-lived service: a scheduled
// detection pass for the current UTC date, the daily stats rollup, and
// an HTTP surface with /health, /status and /metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Karchensky/insider-trades-sub000/internal/baseline"
	"github.com/Karchensky/insider-trades-sub000/internal/config"
	"github.com/Karchensky/insider-trades-sub000/internal/detector"
	"github.com/Karchensky/insider-trades-sub000/internal/factors"
	"github.com/Karchensky/insider-trades-sub000/internal/observability"
	"github.com/Karchensky/insider-trades-sub000/internal/scoring"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
	chstore "github.com/Karchensky/insider-trades-sub000/internal/storage/clickhouse"
	"github.com/Karchensky/insider-trades-sub000/internal/storage/memory"
	"github.com/Karchensky/insider-trades-sub000/internal/storage/migrations"
	pgstore "github.com/Karchensky/insider-trades-sub000/internal/storage/postgres"
)

// Server schedules detection passes and serves status over HTTP.
type Server struct {
	cfg      *config.Config
	stores   *scannerStores
	detector *detector.Detector
	interval time.Duration
	logger   zerolog.Logger

	mu            sync.Mutex
	started       time.Time
	lastRun       time.Time
	lastError     string
	runsTotal     int
	lastAnomalies int
	running       bool
}

type scannerStores struct {
	observations storage.OptionObservationStore
	dailyStats   storage.DailyStatStore
	anomalies    storage.AnomalyStore
}

func main() {
	_ = godotenv.Load()

	strategyFlag := flag.String("strategy", "cappedsum", "Scoring strategy: weighted or cappedsum")
	interval := flag.Duration("interval", 1*time.Hour, "Detection pass interval")
	addr := flag.String("addr", ":9090", "HTTP listen address for health/status/metrics")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "server").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal().Msg("SCANNER_POSTGRES_DSN and SCANNER_CLICKHOUSE_DSN are required (or pass -use-memory)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	srv := &Server{
		cfg:      cfg,
		stores:   stores,
		detector: d,
		interval: *interval,
		logger:   logger,
		started:  time.Now().UTC(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	go srv.serveHTTP(*addr)

	if err := srv.run(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// run executes one pass immediately, then on every tick.
func (s *Server) run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Server) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("previous pass still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now().UTC()
		s.runsTotal++
		s.mu.Unlock()
	}()

	res, err := s.detector.Run(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("detection pass failed")
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return
	}

	high := 0
	for _, rec := range res.Records {
		if rec.Score >= s.cfg.HighConvictionThreshold {
			high++
		}
	}
	observability.SetHighConviction(high)

	if err := s.rollupDay(ctx, res.EventDate); err != nil {
		s.logger.Error().Err(err).Msg("daily stats rollup failed")
	}

	s.mu.Lock()
	s.lastError = ""
	s.lastAnomalies = res.AnomaliesStored
	s.mu.Unlock()
}

// rollupDay folds the event date's observations into daily stats so the
// next pass's baseline window includes today.
func (s *Server) rollupDay(ctx context.Context, day time.Time) error {
	obs, err := s.stores.observations.GetByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("load observations for rollup: %w", err)
	}
	stats := baseline.DailyStatsFromObservations(day, obs, baseline.RollupOptions{
		ShortTermDays: s.cfg.ShortTermDays,
		OTMThreshold:  s.cfg.OTMThresholdPct,
	})
	if len(stats) == 0 {
		return nil
	}
	return s.stores.dailyStats.InsertBulk(ctx, stats)
}

// StatusResponse is the JSON payload for /status.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Strategy      string    `json:"strategy"`
	Interval      string    `json:"interval"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	RunsTotal     int       `json:"runs_total"`
	LastAnomalies int       `json:"last_anomalies"`
	Running       bool      `json:"running"`
}

func (s *Server) serveHTTP(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("http server error")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Strategy:      s.detector.StrategyName(),
		Interval:      s.interval.String(),
		LastRun:       s.lastRun,
		LastError:     s.lastError,
		RunsTotal:     s.runsTotal,
		LastAnomalies: s.lastAnomalies,
		Running:       s.running,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
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
