package scoring

import (
	"math"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/factors"
)

// Capped-sum sub-score budgets and scale. The volume z is halved before
// capping, so a side saturates its budget at six standard deviations.
const (
	cappedSumMax        = 10.0
	volumeAnomalyBudget = 3.0
	volumeZDivisor      = 2.0
)

// Sub-score keys reported in ScoreDetails.
const (
	SubScoreVolumeAnomaly        = "volume_anomaly"
	SubScoreOTMCallConcentration = "otm_call_concentration"
	SubScoreDirectionalBias      = "directional_bias"
	SubScoreTimePressure         = "time_pressure"
)

// CappedSumStrategy is the 0-10 four-component model. Each sub-score is
// independently capped, the sum is capped at 10, and only symbols at or
// above the high-conviction threshold produce a record. Symbols trading
// under the minimum-volume gate are not scored at all.
type CappedSumStrategy struct {
	extractor *factors.Extractor
	minVolume int64
	threshold float64
}

// CappedSumOptions configures a CappedSumStrategy.
type CappedSumOptions struct {
	Extractor     *factors.Extractor
	MinVolumeGate int64
	Threshold     float64
}

// NewCappedSumStrategy creates the strategy. Threshold 7.0 is the
// compatibility contract for "high conviction" and should only deviate
// in tests.
func NewCappedSumStrategy(opts CappedSumOptions) *CappedSumStrategy {
	s := &CappedSumStrategy{
		extractor: opts.Extractor,
		minVolume: opts.MinVolumeGate,
		threshold: opts.Threshold,
	}
	if s.extractor == nil {
		s.extractor = factors.NewExtractor(factors.Options{})
	}
	if s.threshold == 0 {
		s.threshold = 7.0
	}
	return s
}

// Name implements Strategy.
func (s *CappedSumStrategy) Name() string { return StrategyCappedSum }

// Score implements Strategy.
func (s *CappedSumStrategy) Score(in SymbolInput) (*domain.ScoreRecord, bool) {
	act := s.extractor.Activity(in.Symbol, in.Contracts, in.AsOf)
	if act.TotalVolume < s.minVolume {
		return nil, false
	}
	if in.CallBaseline == nil && in.PutBaseline == nil {
		return nil, false
	}

	volumeScore := s.volumeAnomaly(act, in.CallBaseline, in.PutBaseline)
	otmScore := act.OTMCallConcentration()
	biasScore := act.DirectionalBias()
	pressureScore := act.TimePressure()

	composite := math.Min(volumeScore+otmScore+biasScore+pressureScore, cappedSumMax)
	if composite < s.threshold {
		return nil, false
	}

	rec := &domain.ScoreRecord{
		EventDate: domain.DateOf(in.EventDate),
		Symbol:    in.Symbol,
		Direction: direction(act),
		Kind:      s.Name(),
		Score:     composite,
		Tier:      cappedSumTier(composite),
		SupportingFactors: []string{
			SubScoreVolumeAnomaly,
			SubScoreOTMCallConcentration,
			SubScoreDirectionalBias,
			SubScoreTimePressure,
		},
		Details: domain.ScoreDetails{
			SubScores: map[string]float64{
				SubScoreVolumeAnomaly:        volumeScore,
				SubScoreOTMCallConcentration: otmScore,
				SubScoreDirectionalBias:      biasScore,
				SubScoreTimePressure:         pressureScore,
			},
			CallVolume:  act.CallVolume,
			PutVolume:   act.PutVolume,
			TotalVolume: act.TotalVolume,
		},
		AsOf: in.AsOf,
	}
	if in.CallBaseline != nil {
		rec.Details.CallBaselineAvg = in.CallBaseline.AvgDailyVolume
	}
	if in.PutBaseline != nil {
		rec.Details.PutBaselineAvg = in.PutBaseline.AvgDailyVolume
	}
	return rec, true
}

// volumeAnomaly scores the more anomalous side. Only elevated volume
// counts: a side trading at or below its average is no signal, so the
// score is monotone in each side's volume. Each side can earn the full
// 3.0 budget on its own; a missing side baseline contributes nothing.
func (s *CappedSumStrategy) volumeAnomaly(act factors.SymbolActivity, callBase, putBase *domain.BaselineAggregate) float64 {
	callScore, putScore := 0.0, 0.0
	if callBase != nil {
		z := factors.VolumeZScore(act.CallVolume, *callBase)
		callScore = math.Min(z/volumeZDivisor, volumeAnomalyBudget)
	}
	if putBase != nil {
		z := factors.VolumeZScore(act.PutVolume, *putBase)
		putScore = math.Min(z/volumeZDivisor, volumeAnomalyBudget)
	}
	return math.Max(callScore, putScore)
}

func direction(act factors.SymbolActivity) string {
	if act.TotalVolume <= 0 {
		return domain.DirectionMixed
	}
	callRatio := float64(act.CallVolume) / float64(act.TotalVolume)
	switch {
	case callRatio >= 0.6:
		return domain.DirectionBullish
	case callRatio <= 0.4:
		return domain.DirectionBearish
	default:
		return domain.DirectionMixed
	}
}

// cappedSumTier maps the 0-10 scale onto tiers. Everything emitted is
// already at least high-conviction; 9+ is extreme.
func cappedSumTier(score float64) domain.ConvictionTier {
	switch {
	case score >= 9.0:
		return domain.TierExtreme
	case score >= 7.0:
		return domain.TierHigh
	case score >= 5.0:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}
