package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

var (
	eventDate = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	scoreAsOf = time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)
)

func obs(symbol, ticker string, side domain.Side, strike, underlying float64, volume int64, dte int) *domain.OptionObservation {
	return &domain.OptionObservation{
		Symbol:          symbol,
		ContractTicker:  ticker,
		Side:            side,
		Strike:          decimal.NewFromFloat(strike),
		Expiration:      domain.DateOf(scoreAsOf).AddDate(0, 0, dte),
		SessionVolume:   volume,
		UnderlyingPrice: decimal.NewFromFloat(underlying),
		AsOf:            scoreAsOf,
	}
}

func agg(avg, stddev float64) *domain.BaselineAggregate {
	return &domain.BaselineAggregate{DaysCount: 30, AvgDailyVolume: avg, StddevDailyVolume: stddev}
}

// spikeInput is the maximal synthetic anomaly: volume 100x the baseline
// average, all of it short-dated OTM calls expiring within a week.
func spikeInput() SymbolInput {
	return SymbolInput{
		Symbol:       "ACME",
		EventDate:    eventDate,
		AsOf:         scoreAsOf,
		Contracts:    []*domain.OptionObservation{obs("ACME", "ACME-C120", domain.SideCall, 120, 100, 10_000, 3)},
		CallBaseline: agg(100, 10),
		PutBaseline:  agg(100, 10),
		Market:       domain.NeutralMarketContext(),
	}
}

func TestCappedSumSaturatesAtTen(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500})
	rec, ok := s.Score(spikeInput())
	require.True(t, ok)

	assert.Equal(t, 10.0, rec.Score)
	assert.Equal(t, domain.TierExtreme, rec.Tier)
	assert.Equal(t, domain.DirectionBullish, rec.Direction)
	assert.Equal(t, StrategyCappedSum, rec.Kind)
	assert.Equal(t, 3.0, rec.Details.SubScores[SubScoreVolumeAnomaly])
	assert.Equal(t, 3.0, rec.Details.SubScores[SubScoreOTMCallConcentration])
	assert.Equal(t, 2.0, rec.Details.SubScores[SubScoreDirectionalBias])
	assert.Equal(t, 2.0, rec.Details.SubScores[SubScoreTimePressure])
}

func TestCappedSumVolumeGate(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500})

	in := spikeInput()
	in.Contracts[0].SessionVolume = 499
	_, ok := s.Score(in)
	assert.False(t, ok, "499 contracts must be gated out")

	in = spikeInput()
	in.Contracts[0].SessionVolume = 500
	_, ok = s.Score(in)
	assert.True(t, ok, "500 contracts must be eligible")
}

func TestCappedSumThresholdExactness(t *testing.T) {
	// threshold behavior is checked directly against the composite the
	// strategy reproduces: emitted iff composite >= 7.0
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500, Threshold: 7.0})

	// balanced flow with a modest spike lands below 7
	in := SymbolInput{
		Symbol:    "DULL",
		EventDate: eventDate,
		AsOf:      scoreAsOf,
		Contracts: []*domain.OptionObservation{
			obs("DULL", "DULL-C100", domain.SideCall, 100, 100, 400, 40),
			obs("DULL", "DULL-P100", domain.SidePut, 100, 100, 400, 40),
		},
		CallBaseline: agg(300, 100),
		PutBaseline:  agg(300, 100),
		Market:       domain.NeutralMarketContext(),
	}
	_, ok := s.Score(in)
	assert.False(t, ok)

	// raising the threshold above 10 suppresses even the saturated spike
	strict := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500, Threshold: 10.000001})
	_, ok = strict.Score(spikeInput())
	assert.False(t, ok)

	// a threshold exactly at the composite includes the record
	exact := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500, Threshold: 10.0})
	_, ok = exact.Score(spikeInput())
	assert.True(t, ok)
}

func TestCappedSumNoBaselines(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500})
	in := spikeInput()
	in.CallBaseline = nil
	in.PutBaseline = nil
	_, ok := s.Score(in)
	assert.False(t, ok, "no baseline means no comparison, not a zero baseline")
}

func TestCappedSumZeroSignal(t *testing.T) {
	// volume exactly at baseline average, balanced sides, far-dated,
	// at-the-money: nothing to report
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500})
	in := SymbolInput{
		Symbol:    "CALM",
		EventDate: eventDate,
		AsOf:      scoreAsOf,
		Contracts: []*domain.OptionObservation{
			obs("CALM", "CALM-C100", domain.SideCall, 100, 100, 1000, 60),
			obs("CALM", "CALM-P100", domain.SidePut, 100, 100, 1000, 60),
		},
		CallBaseline: agg(1000, 200),
		PutBaseline:  agg(1000, 200),
		Market:       domain.NeutralMarketContext(),
	}
	_, ok := s.Score(in)
	assert.False(t, ok)
}

func TestCappedSumBearishDirection(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500, Threshold: 2.0})
	in := SymbolInput{
		Symbol:    "DOOM",
		EventDate: eventDate,
		AsOf:      scoreAsOf,
		Contracts: []*domain.OptionObservation{
			obs("DOOM", "DOOM-P80", domain.SidePut, 80, 100, 9000, 3),
			obs("DOOM", "DOOM-C120", domain.SideCall, 120, 100, 1000, 3),
		},
		CallBaseline: agg(100, 10),
		PutBaseline:  agg(100, 10),
		Market:       domain.NeutralMarketContext(),
	}
	rec, ok := s.Score(in)
	require.True(t, ok)
	assert.Equal(t, domain.DirectionBearish, rec.Direction)
}

func TestCappedSumVolumeAnomalyMonotone(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 1, Threshold: 0.000001})
	volScore := func(putVol int64) float64 {
		contracts := []*domain.OptionObservation{
			obs("MONO", "MONO-C120", domain.SideCall, 120, 100, 300, 3),
		}
		if putVol > 0 {
			contracts = append(contracts, obs("MONO", "MONO-P80", domain.SidePut, 80, 100, putVol, 3))
		}
		rec, ok := s.Score(SymbolInput{
			Symbol:       "MONO",
			EventDate:    eventDate,
			AsOf:         scoreAsOf,
			Contracts:    contracts,
			CallBaseline: agg(100, 100),
			PutBaseline:  agg(100, 100),
			Market:       domain.NeutralMarketContext(),
		})
		require.True(t, ok)
		return rec.Details.SubScores[SubScoreVolumeAnomaly]
	}

	// Call side alone: z of 2, halved to 1.0.
	assert.InDelta(t, 1.0, volScore(0), 1e-9)
	// A put book at its average adds nothing, and a collapsed put book
	// must not score higher than one trading normally.
	assert.InDelta(t, 1.0, volScore(100), 1e-9)
	// A genuine put spike takes over once it beats the call side.
	assert.InDelta(t, 1.25, volScore(350), 1e-9)
}

func TestCappedSumIdempotent(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 500})
	a, okA := s.Score(spikeInput())
	b, okB := s.Score(spikeInput())
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}

func TestCappedSumScoreWithinBounds(t *testing.T) {
	s := NewCappedSumStrategy(CappedSumOptions{MinVolumeGate: 1, Threshold: 0.000001})
	inputs := []SymbolInput{
		spikeInput(),
		{
			Symbol:    "MIX",
			EventDate: eventDate,
			AsOf:      scoreAsOf,
			Contracts: []*domain.OptionObservation{
				obs("MIX", "MIX-C200", domain.SideCall, 200, 100, 700, 2),
			},
			CallBaseline: agg(0.001, 0.0001),
			Market:       domain.NeutralMarketContext(),
		},
	}
	for _, in := range inputs {
		rec, ok := s.Score(in)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 10.0)
	}
}
