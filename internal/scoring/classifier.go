package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// Tier thresholds of the 0-15 weighted scale. Inclusive lower bounds;
// the highest matching tier wins.
const (
	tierMediumAt  = 5.0
	tierHighAt    = 7.5
	tierExtremeAt = 10.0
)

// Supporting-factor selection: value must exceed this to count as
// evidence, and at most this many names are reported.
const (
	supportingFactorCutoff = 1.0
	supportingFactorLimit  = 5
)

const expectedReturnCap = 5.0

// Volatility-skew level treated as high-volatility evidence in the
// risk-tag catalog.
const skewRiskCutoff = 1.5

// Classifier derives the presentation half of a weighted-model record:
// tier, evidence lists, expected return, risk factor, and time horizon.
// Pure; safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ClassifyInput carries the scored contract and its context.
type ClassifyInput struct {
	Score       float64
	Factors     domain.FactorSet
	Observation *domain.OptionObservation
	Market      domain.MarketContext
	AsOf        time.Time
}

// Classify maps a composite score to a ScoreRecord skeleton. The caller
// fills in identity fields (event date, symbol, kind) and volume totals.
func (c *Classifier) Classify(in ClassifyInput) *domain.ScoreRecord {
	o := in.Observation
	dte := o.DaysToExpiry(in.AsOf)

	strike, _ := o.Strike.Float64()
	underlying, _ := o.UnderlyingPrice.Float64()

	rec := &domain.ScoreRecord{
		Direction:         directionForSide(o.Side),
		Score:             in.Score,
		Tier:              WeightedTier(in.Score),
		SupportingFactors: supportingFactors(in.Factors),
		RiskFactors:       riskTags(in.Factors, in.Market, dte),
		Details: domain.ScoreDetails{
			SubScores:       subScores(in.Factors),
			ContractTicker:  o.ContractTicker,
			Strike:          strike,
			ExpiryDate:      o.Expiration.Format("2006-01-02"),
			UnderlyingPrice: underlying,
			ExpectedReturn:  expectedReturn(in.Score, dte, in.Market, o.Delta),
			RiskFactor:      riskFactor(in.Factors, in.Market, dte),
			TimeHorizonDays: timeHorizon(in.Factors, dte),
		},
	}
	return rec
}

// WeightedTier buckets a 0-15 score.
func WeightedTier(score float64) domain.ConvictionTier {
	switch {
	case score >= tierExtremeAt:
		return domain.TierExtreme
	case score >= tierHighAt:
		return domain.TierHigh
	case score >= tierMediumAt:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

func directionForSide(side domain.Side) string {
	if side == domain.SidePut {
		return domain.DirectionBearish
	}
	return domain.DirectionBullish
}

// Factor display names, used for supporting-evidence lists.
var factorDisplayNames = []struct {
	name  string
	value func(domain.FactorSet) float64
}{
	{"Exceptional Volume Spike", func(f domain.FactorSet) float64 { return f.VolumeZScore }},
	{"Strong OI Momentum", func(f domain.FactorSet) float64 { return f.OIMomentum }},
	{"Price Momentum Alignment", func(f domain.FactorSet) float64 { return f.PriceMomentum }},
	{"Volatility Expansion", func(f domain.FactorSet) float64 { return f.VolatilitySkew }},
	{"Short Time Frame", func(f domain.FactorSet) float64 { return f.TimeDecay }},
	{"Favorable Greeks", func(f domain.FactorSet) float64 { return f.GreeksAlignment }},
	{"Strike Concentration", func(f domain.FactorSet) float64 { return f.StrikeConcentration }},
	{"Small Cap Premium", func(f domain.FactorSet) float64 { return f.MarketCapFactor }},
	{"Liquidity Surge", func(f domain.FactorSet) float64 { return f.LiquidityFactor }},
	{"Pattern Recognition", func(f domain.FactorSet) float64 { return f.PatternRecognition }},
}

func subScores(fs domain.FactorSet) map[string]float64 {
	return map[string]float64{
		"volume_z_score":       fs.VolumeZScore,
		"oi_momentum":          fs.OIMomentum,
		"price_momentum":       fs.PriceMomentum,
		"volatility_skew":      fs.VolatilitySkew,
		"time_decay":           fs.TimeDecay,
		"greeks_alignment":     fs.GreeksAlignment,
		"strike_concentration": fs.StrikeConcentration,
		"market_cap_factor":    fs.MarketCapFactor,
		"liquidity_factor":     fs.LiquidityFactor,
		"pattern_recognition":  fs.PatternRecognition,
	}
}

// supportingFactors picks factor display names with value above the
// cutoff, sorted by value descending (name ascending on ties so repeated
// runs emit identical lists), truncated to the limit.
func supportingFactors(fs domain.FactorSet) []string {
	type scored struct {
		name  string
		value float64
	}
	var picked []scored
	for _, f := range factorDisplayNames {
		if v := f.value(fs); v > supportingFactorCutoff {
			picked = append(picked, scored{name: f.name, value: v})
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].value != picked[j].value {
			return picked[i].value > picked[j].value
		}
		return picked[i].name < picked[j].name
	})
	if len(picked) > supportingFactorLimit {
		picked = picked[:supportingFactorLimit]
	}
	names := make([]string, len(picked))
	for i, p := range picked {
		names[i] = p.name
	}
	return names
}

// riskTags evaluates independent boolean rules in declaration order.
// Multiple tags may co-occur; order is never sorted.
func riskTags(fs domain.FactorSet, mkt domain.MarketContext, dte int) []string {
	var tags []string
	switch {
	case dte < 7:
		tags = append(tags, "Very Short Time to Expiry")
	case dte < 14:
		tags = append(tags, "Short Time to Expiry")
	}
	if fs.LiquidityFactor < 0.5 {
		tags = append(tags, "Low Liquidity")
	}
	if fs.VolatilitySkew > skewRiskCutoff {
		tags = append(tags, "High Volatility Environment")
	}
	if mkt.MarketCap > 0 && mkt.MarketCap < 500e6 {
		tags = append(tags, "Very Small Cap Risk")
	}
	if mkt.EarningsWithin7d {
		tags = append(tags, "Earnings Announcement Imminent")
	}
	if mkt.Trend == domain.TrendBearish {
		tags = append(tags, "Bearish Market Environment")
	}
	return tags
}

// expectedReturn estimates the move implied by the signal: a base return
// scaled by time, volatility and delta multipliers, capped at 500%.
// Neutral at seven days to expiry and 20% market vol.
func expectedReturn(score float64, dte int, mkt domain.MarketContext, delta *float64) float64 {
	base := math.Min(score/weightedMax*2.0, 2.0)

	timeMult := math.Max(1.0-float64(dte-7)/30.0, 0.3)

	marketVol := mkt.MarketVol
	if marketVol <= 0 {
		marketVol = 0.20
	}
	volMult := 1.0 + (marketVol-0.20)*2

	absDelta := 0.5
	if delta != nil {
		absDelta = math.Abs(*delta)
	}
	deltaMult := 0.5 + absDelta

	return math.Min(math.Max(base*timeMult*volMult*deltaMult, 0), expectedReturnCap)
}

// riskFactor averages four independent [0,1] components.
func riskFactor(fs domain.FactorSet, mkt domain.MarketContext, dte int) float64 {
	timeRisk := unit((14.0 - float64(dte)) / 14.0)
	liquidityRisk := unit(1.0 - fs.LiquidityFactor/2.0)
	volRisk := unit(fs.VolatilitySkew / 3.0)

	// Unknown market cap reads as large-cap, the lowest bucket.
	capRisk := 0.1
	switch {
	case mkt.MarketCap <= 0:
		capRisk = 0.1
	case mkt.MarketCap < 1e9:
		capRisk = 0.8
	case mkt.MarketCap < 5e9:
		capRisk = 0.4
	}

	return (timeRisk + liquidityRisk + volRisk + capRisk) / 4.0
}

// timeHorizon starts at min(dte, 21) and is only ever tightened: strong
// volume and OI signals should resolve quickly, and heavy time decay
// shortens the window further. Floor one day.
func timeHorizon(fs domain.FactorSet, dte int) int {
	horizon := dte
	if horizon > 21 {
		horizon = 21
	}
	strength := fs.VolumeZScore + fs.OIMomentum
	switch {
	case strength > 5.0:
		horizon = minInt(horizon, 7)
	case strength > 3.0:
		horizon = minInt(horizon, 14)
	}
	if fs.TimeDecay > 1.5 {
		horizon = minInt(horizon, 5)
	}
	if horizon < 1 {
		horizon = 1
	}
	return horizon
}

func unit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
