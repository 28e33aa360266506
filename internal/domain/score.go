package domain

import "time"

// ConvictionTier buckets a composite score for triage.
type ConvictionTier string

const (
	TierLow     ConvictionTier = "LOW"
	TierMedium  ConvictionTier = "MEDIUM"
	TierHigh    ConvictionTier = "HIGH"
	TierExtreme ConvictionTier = "EXTREME"
)

// Direction labels which way the anomalous flow leans.
const (
	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
	DirectionMixed   = "mixed"
)

// ScoreRecord is one symbol's anomaly verdict for one event date.
// Identity is (EventDate, Symbol); re-running detection for the same date
// upserts with last-write-wins semantics.
type ScoreRecord struct {
	EventDate         time.Time // UTC midnight
	Symbol            string
	Direction         string
	Kind              string // strategy identifier that produced the record
	Score             float64
	Tier              ConvictionTier
	SupportingFactors []string
	RiskFactors       []string
	Details           ScoreDetails
	AsOf              time.Time
}

// ScoreDetails is the JSON payload persisted alongside a score.
// Sub-scores carry the per-factor breakdown; contract fields are set only
// by strategies that score individual contracts.
type ScoreDetails struct {
	SubScores       map[string]float64 `json:"sub_scores"`
	CallVolume      int64              `json:"call_volume"`
	PutVolume       int64              `json:"put_volume"`
	TotalVolume     int64              `json:"total_volume"`
	CallBaselineAvg float64            `json:"call_baseline_avg"`
	PutBaselineAvg  float64            `json:"put_baseline_avg"`

	ContractTicker  string  `json:"contract_ticker,omitempty"`
	Strike          float64 `json:"strike,omitempty"`
	ExpiryDate      string  `json:"expiry_date,omitempty"`
	UnderlyingPrice float64 `json:"underlying_price,omitempty"`

	ExpectedReturn  float64 `json:"expected_return,omitempty"`
	RiskFactor      float64 `json:"risk_factor,omitempty"`
	TimeHorizonDays int     `json:"time_horizon_days,omitempty"`
}
