// Package main renders one event date's stored anomalies to CSV and
// Markdown files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Karchensky/insider-trades-sub000/internal/config"
	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/reporting"
	"github.com/Karchensky/insider-trades-sub000/internal/storage/migrations"
	pgstore "github.com/Karchensky/insider-trades-sub000/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	dateFlag := flag.String("date", "", "Event date YYYY-MM-DD (default: today UTC)")
	minScore := flag.Float64("min-score", 0, "Only include records at or above this score")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "report").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("SCANNER_POSTGRES_DSN is required")
	}

	eventDate := domain.DateOf(time.Now())
	if *dateFlag != "" {
		eventDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			logger.Fatal().Err(err).Str("date", *dateFlag).Msg("parse -date")
		}
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("postgres migrations")
	}

	gen := reporting.NewGenerator(pgstore.NewAnomalyStore(pool))
	report, err := gen.Generate(ctx, eventDate, *minScore)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatal().Err(err).Str("dir", *outputDir).Msg("create output directory")
	}

	day := report.EventDate.Format("2006-01-02")
	csvPath := filepath.Join(*outputDir, fmt.Sprintf("anomalies_%s.csv", day))
	mdPath := filepath.Join(*outputDir, fmt.Sprintf("anomalies_%s.md", day))

	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Anomalies)), 0644); err != nil {
		logger.Fatal().Err(err).Msg("write csv")
	}
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		logger.Fatal().Err(err).Msg("write markdown")
	}

	logger.Info().
		Int("records", report.Summary.TotalRecords).
		Str("csv", csvPath).
		Str("markdown", mdPath).
		Msg("report generated")
}
