package factors

import "github.com/Karchensky/insider-trades-sub000/internal/domain"

// PatternInput is everything a pattern predicate may look at.
type PatternInput struct {
	Observation   *domain.OptionObservation
	Activity      SymbolActivity
	Market        domain.MarketContext
	DaysToExpiry  int
	VolumeRatio   float64 // contract session volume / baseline side average, 0 when no baseline
	SideAvgVolume float64 // baseline side average, 0 when no baseline
	OTMThreshold  float64
}

// PatternRule is one boolean pattern bonus. A rule contributes its points
// only when the full predicate holds; rules are independent and additive
// up to the pattern-recognition cap. New rules slot in without touching
// the scorer.
type PatternRule struct {
	Name    string
	Points  float64
	Applies func(PatternInput) bool
}

// DefaultPatternRules is the built-in pattern catalog.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			Name:   "otm_call_pre_earnings_spike",
			Points: 1.5,
			Applies: func(in PatternInput) bool {
				o := in.Observation
				return o.Side == domain.SideCall &&
					o.IsOTM(in.OTMThreshold) &&
					in.Market.EarningsWithin30d &&
					in.VolumeRatio > 10
			},
		},
		{
			Name:   "put_spike_negative_sentiment",
			Points: 1.2,
			Applies: func(in PatternInput) bool {
				return in.Observation.Side == domain.SidePut &&
					in.VolumeRatio > 8 &&
					in.Market.NegativeNewsSentiment > 0.7
			},
		},
		{
			Name:   "short_dated_high_gamma",
			Points: 1.0,
			Applies: func(in PatternInput) bool {
				o := in.Observation
				return in.DaysToExpiry >= 0 && in.DaysToExpiry < 14 &&
					o.Gamma != nil && *o.Gamma > 0.05 &&
					in.VolumeRatio > 5
			},
		},
		{
			Name:   "illiquid_name_volume_spike",
			Points: 1.8,
			Applies: func(in PatternInput) bool {
				return in.Market.MarketCap > 0 && in.Market.MarketCap < 2e9 &&
					in.VolumeRatio > 15 &&
					in.SideAvgVolume > 0 && in.SideAvgVolume < 500
			},
		},
		{
			Name:   "strike_ladder",
			Points: 1.0,
			Applies: func(in PatternInput) bool {
				return in.Activity.StrikeLadder
			},
		},
	}
}

// PatternScore sums the bonuses of every matching rule, capped at 3.0.
func (e *Extractor) PatternScore(in PatternInput) float64 {
	total := 0.0
	for _, rule := range e.patternRules {
		if rule.Applies(in) {
			total += rule.Points
		}
	}
	return clamp(total, CapPatternRecognition)
}

// MatchedPatterns returns the names of every matching rule, in catalog
// order, for score detail payloads.
func (e *Extractor) MatchedPatterns(in PatternInput) []string {
	var names []string
	for _, rule := range e.patternRules {
		if rule.Applies(in) {
			names = append(names, rule.Name)
		}
	}
	return names
}
