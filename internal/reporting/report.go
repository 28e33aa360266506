package reporting

import (
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// Report is the daily anomaly digest for one event date.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	EventDate   time.Time
	MinScore    float64

	// Summary
	Summary Summary

	// Per-symbol rows, sorted by score descending then symbol ascending.
	Anomalies []AnomalyRow
}

// Summary aggregates the day's records.
type Summary struct {
	TotalRecords int
	BullishCount int
	BearishCount int
	MixedCount   int
	TierCounts   map[domain.ConvictionTier]int
	TopSymbol    string
	TopScore     float64
}

// AnomalyRow is one symbol's entry in the digest tables.
type AnomalyRow struct {
	Symbol            string
	Direction         string
	Kind              string
	Score             float64
	Tier              domain.ConvictionTier
	TotalVolume       int64
	CallVolume        int64
	PutVolume         int64
	ContractTicker    string
	ExpectedReturn    float64
	RiskFactor        float64
	TimeHorizonDays   int
	SupportingFactors []string
	RiskFactors       []string
}
