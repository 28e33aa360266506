package scoring

import (
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// Strategy identifiers, persisted in ScoreRecord.Kind.
const (
	StrategyWeighted  = "WEIGHTED"
	StrategyCappedSum = "CAPPED_SUM"
)

// SymbolInput is everything a strategy needs to score one symbol on one
// event date. Baselines are nil when the trailing window holds no data for
// that side; strategies must treat that as "no comparison possible".
type SymbolInput struct {
	Symbol    string
	EventDate time.Time
	AsOf      time.Time
	Contracts []*domain.OptionObservation

	CallBaseline *domain.BaselineAggregate
	PutBaseline  *domain.BaselineAggregate

	Market domain.MarketContext
}

// Strategy turns one symbol's observations into an anomaly verdict.
// Score is pure and deterministic: identical input yields an identical
// record. The second return is false when the symbol produces no record
// (gated out, below threshold, or no scorable contracts).
type Strategy interface {
	Name() string
	Score(in SymbolInput) (*domain.ScoreRecord, bool)
}
