package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// Generator produces daily digests from stored anomaly records.
type Generator struct {
	anomalyStore storage.AnomalyStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(anomalyStore storage.AnomalyStore) *Generator {
	return &Generator{
		anomalyStore: anomalyStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the digest for one event date. Records below minScore
// are excluded; minScore <= 0 includes everything. The store already
// returns records in score-descending order, which the digest preserves.
func (g *Generator) Generate(ctx context.Context, date time.Time, minScore float64) (*Report, error) {
	records, err := g.anomalyStore.GetTop(ctx, date, minScore, 0)
	if err != nil {
		return nil, fmt.Errorf("load anomaly records: %w", err)
	}

	summary := Summary{
		TotalRecords: len(records),
		TierCounts:   make(map[domain.ConvictionTier]int),
	}
	rows := make([]AnomalyRow, 0, len(records))

	for _, rec := range records {
		switch rec.Direction {
		case domain.DirectionBullish:
			summary.BullishCount++
		case domain.DirectionBearish:
			summary.BearishCount++
		default:
			summary.MixedCount++
		}
		summary.TierCounts[rec.Tier]++

		rows = append(rows, AnomalyRow{
			Symbol:            rec.Symbol,
			Direction:         rec.Direction,
			Kind:              rec.Kind,
			Score:             rec.Score,
			Tier:              rec.Tier,
			TotalVolume:       rec.Details.TotalVolume,
			CallVolume:        rec.Details.CallVolume,
			PutVolume:         rec.Details.PutVolume,
			ContractTicker:    rec.Details.ContractTicker,
			ExpectedReturn:    rec.Details.ExpectedReturn,
			RiskFactor:        rec.Details.RiskFactor,
			TimeHorizonDays:   rec.Details.TimeHorizonDays,
			SupportingFactors: rec.SupportingFactors,
			RiskFactors:       rec.RiskFactors,
		})
	}

	if len(rows) > 0 {
		summary.TopSymbol = rows[0].Symbol
		summary.TopScore = rows[0].Score
	}

	return &Report{
		GeneratedAt: g.now(),
		EventDate:   domain.DateOf(date),
		MinScore:    minScore,
		Summary:     summary,
		Anomalies:   rows,
	}, nil
}
