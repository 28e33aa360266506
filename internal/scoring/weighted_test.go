package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

func TestBaseWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, baseWeights().sum(), 1e-9)
}

func TestAdjustedWeightsRenormalize(t *testing.T) {
	mkt := domain.NeutralMarketContext()
	mkt.MarketVol = 0.45
	mkt.EarningsWithin30d = true

	w := baseWeights().adjusted(mkt)
	assert.InDelta(t, 1.0, w.sum(), 1e-9)
	// boosted factors gain relative weight
	assert.Greater(t, w.TimeDecay, baseWeights().TimeDecay)
	assert.Greater(t, w.VolatilitySkew, baseWeights().VolatilitySkew)
	assert.Greater(t, w.GreeksAlignment, baseWeights().GreeksAlignment)
	// unboosted factors lose relative weight
	assert.Less(t, w.VolumeZScore, baseWeights().VolumeZScore)
}

func TestAdjustedWeightsQuietRegime(t *testing.T) {
	mkt := domain.NeutralMarketContext()
	mkt.MarketVol = 0.10

	w := baseWeights().adjusted(mkt)
	assert.InDelta(t, 1.0, w.sum(), 1e-9)
	// in quiet markets raw volume and OI anomalies gain weight
	assert.Greater(t, w.VolumeZScore, baseWeights().VolumeZScore)
	assert.Greater(t, w.OIMomentum, baseWeights().OIMomentum)
	assert.Less(t, w.VolatilitySkew, baseWeights().VolatilitySkew)

	// unknown market vol is the neutral regime, not a quiet one
	unknown := baseWeights().adjusted(domain.MarketContext{})
	assert.InDelta(t, baseWeights().VolumeZScore, unknown.VolumeZScore, 1e-9)
}

func weightedSpikeInput() SymbolInput {
	o := obs("ACME", "ACME-C120", domain.SideCall, 120, 100, 50_000, 3)
	o.OpenInterest = int64p(50_000)
	o.PrevOpenInterest = int64p(5_000)
	o.ImpliedVol = float64p(1.2)
	o.Delta = float64p(0.4)
	o.Gamma = float64p(0.06)

	mkt := domain.NeutralMarketContext()
	mkt.StockChangePct = 0.08
	mkt.EarningsWithin30d = true
	mkt.MarketCap = 800e6

	return SymbolInput{
		Symbol:       "ACME",
		EventDate:    eventDate,
		AsOf:         scoreAsOf,
		Contracts:    []*domain.OptionObservation{o},
		CallBaseline: agg(500, 100),
		Market:       mkt,
	}
}

func int64p(v int64) *int64 { return &v }

func float64p(v float64) *float64 { return &v }

func TestWeightedScoresSpike(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 3.0})
	rec, ok := s.Score(weightedSpikeInput())
	require.True(t, ok)

	assert.Equal(t, StrategyWeighted, rec.Kind)
	assert.Equal(t, "ACME", rec.Symbol)
	assert.Equal(t, domain.DirectionBullish, rec.Direction)
	assert.GreaterOrEqual(t, rec.Score, 3.0)
	assert.LessOrEqual(t, rec.Score, 15.0)
	assert.Equal(t, "ACME-C120", rec.Details.ContractTicker)
	assert.NotEmpty(t, rec.SupportingFactors)
	assert.LessOrEqual(t, len(rec.SupportingFactors), 5)
	assert.Positive(t, rec.Details.ExpectedReturn)
	assert.Positive(t, rec.Details.TimeHorizonDays)
}

func TestWeightedSuppressesQuietSymbols(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 3.0})
	in := SymbolInput{
		Symbol:    "CALM",
		EventDate: eventDate,
		AsOf:      scoreAsOf,
		Contracts: []*domain.OptionObservation{
			obs("CALM", "CALM-C100", domain.SideCall, 100, 100, 1000, 60),
		},
		CallBaseline: agg(1000, 300),
		Market:       domain.NeutralMarketContext(),
	}
	_, ok := s.Score(in)
	assert.False(t, ok)
}

func TestWeightedNoContracts(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{})
	_, ok := s.Score(SymbolInput{Symbol: "NONE", EventDate: eventDate, AsOf: scoreAsOf})
	assert.False(t, ok)
}

func TestWeightedPicksBestContract(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 0.000001})

	quiet := obs("ACME", "ACME-C105-far", domain.SideCall, 105, 100, 100, 200)
	loud := obs("ACME", "ACME-C120-near", domain.SideCall, 120, 100, 40_000, 2)
	loud.Delta = float64p(0.5)
	loud.Gamma = float64p(0.08)

	in := SymbolInput{
		Symbol:       "ACME",
		EventDate:    eventDate,
		AsOf:         scoreAsOf,
		Contracts:    []*domain.OptionObservation{quiet, loud},
		CallBaseline: agg(500, 100),
		Market:       domain.NeutralMarketContext(),
	}
	rec, ok := s.Score(in)
	require.True(t, ok)
	assert.Equal(t, "ACME-C120-near", rec.Details.ContractTicker)
}

// weightedMildInput stays far from the 15.0 cap so multiplier effects
// remain visible.
func weightedMildInput() SymbolInput {
	o := obs("MILD", "MILD-C110", domain.SideCall, 110, 100, 800, 10)
	return SymbolInput{
		Symbol:       "MILD",
		EventDate:    eventDate,
		AsOf:         scoreAsOf,
		Contracts:    []*domain.OptionObservation{o},
		CallBaseline: agg(500, 100),
		Market:       domain.NeutralMarketContext(),
	}
}

func TestWeightedMarketAdjustmentsIncreaseScore(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 0.000001})

	base, ok := s.Score(weightedMildInput())
	require.True(t, ok)
	require.Less(t, base.Score, 15.0)

	adjusted := weightedMildInput()
	adjusted.Market.Trend = domain.TrendBearish
	adjusted.Market.SectorMomentum = 0.08
	adjusted.Market.MajorEventsWithin7d = true
	boosted, ok := s.Score(adjusted)
	require.True(t, ok)

	assert.Greater(t, boosted.Score, base.Score)
	assert.InDelta(t, base.Score*bearishTrendMult*sectorMomentumMult*preEventMult, boosted.Score, 1e-9)
	assert.LessOrEqual(t, boosted.Score, 15.0)
}

func TestWeightedCapAtFifteen(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 0.000001})

	in := weightedSpikeInput()
	// degenerate baseline makes the z-score astronomical; the composite
	// must still come out capped
	in.CallBaseline = agg(0.001, 0.0001)
	in.Market.Trend = domain.TrendBearish
	in.Market.MajorEventsWithin7d = true

	rec, ok := s.Score(in)
	require.True(t, ok)
	assert.Equal(t, 15.0, rec.Score)
	assert.Equal(t, domain.TierExtreme, rec.Tier)
}

func TestWeightedIdempotent(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 3.0})
	a, okA := s.Score(weightedSpikeInput())
	b, okB := s.Score(weightedSpikeInput())
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}

func TestWeightedPutContractScoresBearish(t *testing.T) {
	s := NewWeightedStrategy(WeightedOptions{MinReportScore: 0.000001})
	o := obs("DOOM", "DOOM-P80", domain.SidePut, 80, 100, 30_000, 4)
	in := SymbolInput{
		Symbol:      "DOOM",
		EventDate:   eventDate,
		AsOf:        scoreAsOf,
		Contracts:   []*domain.OptionObservation{o},
		PutBaseline: agg(300, 50),
		Market:      domain.NeutralMarketContext(),
	}
	rec, ok := s.Score(in)
	require.True(t, ok)
	assert.Equal(t, domain.DirectionBearish, rec.Direction)
}
