package scoring

import (
	"math"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/factors"
)

const weightedMax = 15.0

// factorWeights is the base weight table of the 0-15 model. The fields
// mirror domain.FactorSet's weighted subset one to one; values sum to 1.0
// before conditional multipliers and are renormalized after.
type factorWeights struct {
	VolumeZScore        float64
	OIMomentum          float64
	PriceMomentum       float64
	VolatilitySkew      float64
	TimeDecay           float64
	GreeksAlignment     float64
	StrikeConcentration float64
	MarketCapFactor     float64
	LiquidityFactor     float64
	PatternRecognition  float64
}

func baseWeights() factorWeights {
	return factorWeights{
		VolumeZScore:        0.25,
		OIMomentum:          0.15,
		PriceMomentum:       0.15,
		VolatilitySkew:      0.10,
		TimeDecay:           0.08,
		GreeksAlignment:     0.12,
		StrikeConcentration: 0.05,
		MarketCapFactor:     0.05,
		LiquidityFactor:     0.03,
		PatternRecognition:  0.02,
	}
}

// Conditional weight multipliers. High-vol regimes make IV dislocation and
// expiry clustering more informative; in quiet markets raw volume and OI
// anomalies carry more weight; earnings proximity boosts near-dated
// positioning and Greeks.
const (
	highVolRegimeCutoff = 0.30
	lowVolRegimeCutoff  = 0.15

	highVolSkewMult  = 1.5
	highVolDecayMult = 1.3

	lowVolVolumeZMult = 1.2
	lowVolOIMult      = 1.3

	earningsDecayMult  = 1.5
	earningsGreeksMult = 1.2
)

// Post-hoc market adjustments, applied sequentially after the weighted sum.
const (
	bullishTrendMult   = 1.10
	bearishTrendMult   = 1.15
	sectorMomentumMult = 1.08
	preEventMult       = 1.12

	sectorMomentumCutoff = 0.05
)

func (w factorWeights) sum() float64 {
	return w.VolumeZScore + w.OIMomentum + w.PriceMomentum + w.VolatilitySkew +
		w.TimeDecay + w.GreeksAlignment + w.StrikeConcentration +
		w.MarketCapFactor + w.LiquidityFactor + w.PatternRecognition
}

// adjusted applies conditional multipliers for the given market context
// and renormalizes the result to sum to 1.0.
func (w factorWeights) adjusted(mkt domain.MarketContext) factorWeights {
	switch {
	case mkt.MarketVol > highVolRegimeCutoff:
		w.VolatilitySkew *= highVolSkewMult
		w.TimeDecay *= highVolDecayMult
	case mkt.MarketVol > 0 && mkt.MarketVol < lowVolRegimeCutoff:
		// Unknown market vol (zero value) is treated as the neutral
		// regime, not a quiet one.
		w.VolumeZScore *= lowVolVolumeZMult
		w.OIMomentum *= lowVolOIMult
	}
	if mkt.EarningsWithin30d {
		w.TimeDecay *= earningsDecayMult
		w.GreeksAlignment *= earningsGreeksMult
	}
	total := w.sum()
	if total <= 0 {
		return w
	}
	w.VolumeZScore /= total
	w.OIMomentum /= total
	w.PriceMomentum /= total
	w.VolatilitySkew /= total
	w.TimeDecay /= total
	w.GreeksAlignment /= total
	w.StrikeConcentration /= total
	w.MarketCapFactor /= total
	w.LiquidityFactor /= total
	w.PatternRecognition /= total
	return w
}

func (w factorWeights) apply(fs domain.FactorSet) float64 {
	return fs.VolumeZScore*w.VolumeZScore +
		fs.OIMomentum*w.OIMomentum +
		fs.PriceMomentum*w.PriceMomentum +
		fs.VolatilitySkew*w.VolatilitySkew +
		fs.TimeDecay*w.TimeDecay +
		fs.GreeksAlignment*w.GreeksAlignment +
		fs.StrikeConcentration*w.StrikeConcentration +
		fs.MarketCapFactor*w.MarketCapFactor +
		fs.LiquidityFactor*w.LiquidityFactor +
		fs.PatternRecognition*w.PatternRecognition
}

// WeightedStrategy is the 0-15 multi-factor model. Every contract with
// volume is scored individually; the symbol record carries its best
// contract. Records below the minimum report score are suppressed.
type WeightedStrategy struct {
	extractor  *factors.Extractor
	classifier *Classifier
	minScore   float64
}

// WeightedOptions configures a WeightedStrategy.
type WeightedOptions struct {
	Extractor      *factors.Extractor
	MinReportScore float64
}

// NewWeightedStrategy creates the strategy.
func NewWeightedStrategy(opts WeightedOptions) *WeightedStrategy {
	s := &WeightedStrategy{
		extractor: opts.Extractor,
		minScore:  opts.MinReportScore,
	}
	if s.extractor == nil {
		s.extractor = factors.NewExtractor(factors.Options{})
	}
	s.classifier = NewClassifier()
	return s
}

// Name implements Strategy.
func (s *WeightedStrategy) Name() string { return StrategyWeighted }

// Score implements Strategy.
func (s *WeightedStrategy) Score(in SymbolInput) (*domain.ScoreRecord, bool) {
	act := s.extractor.Activity(in.Symbol, in.Contracts, in.AsOf)
	if act.TotalVolume == 0 {
		return nil, false
	}

	weights := baseWeights().adjusted(in.Market)

	var (
		best        *domain.OptionObservation
		bestScore   = -1.0
		bestFactors domain.FactorSet
	)
	for _, o := range in.Contracts {
		if !o.Valid() || o.SessionVolume == 0 {
			continue
		}
		base, has := sideBaseline(o.Side, in)
		fs := s.extractor.ContractFactors(factors.ContractInput{
			Observation: o,
			Activity:    act,
			Baseline:    base,
			HasBaseline: has,
			Market:      in.Market,
			AsOf:        in.AsOf,
		})
		score := s.compositeScore(fs, weights, in.Market)
		if score > bestScore {
			best = o
			bestScore = score
			bestFactors = fs
		}
	}
	if best == nil || bestScore < s.minScore {
		return nil, false
	}

	rec := s.classifier.Classify(ClassifyInput{
		Score:       bestScore,
		Factors:     bestFactors,
		Observation: best,
		Market:      in.Market,
		AsOf:        in.AsOf,
	})
	rec.EventDate = domain.DateOf(in.EventDate)
	rec.Symbol = in.Symbol
	rec.Kind = s.Name()
	rec.AsOf = in.AsOf
	rec.Details.CallVolume = act.CallVolume
	rec.Details.PutVolume = act.PutVolume
	rec.Details.TotalVolume = act.TotalVolume
	if in.CallBaseline != nil {
		rec.Details.CallBaselineAvg = in.CallBaseline.AvgDailyVolume
	}
	if in.PutBaseline != nil {
		rec.Details.PutBaselineAvg = in.PutBaseline.AvgDailyVolume
	}
	return rec, true
}

// compositeScore is the weighted sum capped at 15, then pushed through
// the sequential market adjustments and re-capped.
func (s *WeightedStrategy) compositeScore(fs domain.FactorSet, w factorWeights, mkt domain.MarketContext) float64 {
	score := math.Min(w.apply(fs), weightedMax)
	switch mkt.Trend {
	case domain.TrendBullish:
		score *= bullishTrendMult
	case domain.TrendBearish:
		score *= bearishTrendMult
	}
	if math.Abs(mkt.SectorMomentum) > sectorMomentumCutoff {
		score *= sectorMomentumMult
	}
	if mkt.MajorEventsWithin7d {
		score *= preEventMult
	}
	return math.Min(score, weightedMax)
}

func sideBaseline(side domain.Side, in SymbolInput) (domain.BaselineAggregate, bool) {
	switch side {
	case domain.SideCall:
		if in.CallBaseline != nil {
			return *in.CallBaseline, true
		}
	case domain.SidePut:
		if in.PutBaseline != nil {
			return *in.PutBaseline, true
		}
	}
	return domain.BaselineAggregate{}, false
}
