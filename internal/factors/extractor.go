package factors

import (
	"math"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// Hard ceilings per factor. Caps are applied with min(), floors with max();
// every divide has an explicit zero guard. Uncapped or negative factors
// would corrupt the fixed-threshold tier classification downstream.
const (
	CapOIMomentum           = 5.0
	CapPriceMomentum        = 3.0
	CapVolatilitySkew       = 2.0
	CapTimeDecay            = 2.0
	CapGreeksAlignment      = 3.0
	CapStrikeConcentration  = 2.0
	CapMarketCapFactor      = 2.0
	CapLiquidityFactor      = 2.5
	CapPatternRecognition   = 3.0
	CapOTMCallConcentration = 3.0
	CapDirectionalBias      = 2.0
	CapTimePressure         = 2.0
)

// Market-cap buckets for the small-cap bonus factor, in dollars.
const (
	microCapCutoff = 1e9
	smallCapCutoff = 5e9
)

// Options configures an Extractor. Zero-valued fields fall back to the
// documented defaults (5% OTM margin, 21/7 day expiry cutoffs, the
// built-in pattern catalog).
type Options struct {
	OTMThreshold  float64
	ShortTermDays int
	ThisWeekDays  int
	PatternRules  []PatternRule
}

// Extractor computes the named anomaly factors. All methods are pure and
// deterministic; an Extractor is safe for concurrent use.
type Extractor struct {
	otmThreshold  float64
	shortTermDays int
	thisWeekDays  int
	patternRules  []PatternRule
}

// NewExtractor creates an extractor from options.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		otmThreshold:  opts.OTMThreshold,
		shortTermDays: opts.ShortTermDays,
		thisWeekDays:  opts.ThisWeekDays,
		patternRules:  opts.PatternRules,
	}
	if e.otmThreshold <= 0 {
		e.otmThreshold = 0.05
	}
	if e.shortTermDays <= 0 {
		e.shortTermDays = 21
	}
	if e.thisWeekDays <= 0 {
		e.thisWeekDays = 7
	}
	if e.patternRules == nil {
		e.patternRules = DefaultPatternRules()
	}
	return e
}

// SymbolActivity is the per-symbol aggregation of one day's contracts,
// computed once and shared by every factor that needs symbol-level totals.
type SymbolActivity struct {
	Symbol      string
	CallVolume  int64
	PutVolume   int64
	TotalVolume int64

	OTMCallVolume          int64
	ShortTermOTMCallVolume int64
	ThisWeekVolume         int64
	ShortTermVolume        int64

	StrikeLadder bool

	strikeVolume map[strikeKey]int64
	sideVolume   map[domain.Side]int64
}

type strikeKey struct {
	side   domain.Side
	strike string
}

// Strike-ladder detection thresholds: coordinated accumulation shows up as
// several distinct strikes on one side each carrying real volume.
const (
	ladderMinStrikes = 3
	ladderMinVolume  = 100
)

// Activity aggregates a symbol's contracts for one event date. Invalid or
// zero-volume contracts contribute nothing.
func (e *Extractor) Activity(symbol string, contracts []*domain.OptionObservation, asOf time.Time) SymbolActivity {
	act := SymbolActivity{
		Symbol:       symbol,
		strikeVolume: make(map[strikeKey]int64),
		sideVolume:   make(map[domain.Side]int64),
	}
	for _, o := range contracts {
		if !o.Valid() || o.SessionVolume == 0 {
			continue
		}
		v := o.SessionVolume
		act.TotalVolume += v
		act.sideVolume[o.Side] += v
		act.strikeVolume[strikeKey{side: o.Side, strike: o.Strike.String()}] += v

		dte := o.DaysToExpiry(asOf)
		if dte >= 0 && dte <= e.thisWeekDays {
			act.ThisWeekVolume += v
		}
		if dte >= 0 && dte <= e.shortTermDays {
			act.ShortTermVolume += v
		}

		switch o.Side {
		case domain.SideCall:
			act.CallVolume += v
			if o.IsOTM(e.otmThreshold) {
				act.OTMCallVolume += v
				if dte >= 0 && dte <= e.shortTermDays {
					act.ShortTermOTMCallVolume += v
				}
			}
		case domain.SidePut:
			act.PutVolume += v
		}
	}

	for side := range act.sideVolume {
		n := 0
		for sk, vol := range act.strikeVolume {
			if sk.side == side && vol >= ladderMinVolume {
				n++
			}
		}
		if n >= ladderMinStrikes {
			act.StrikeLadder = true
			break
		}
	}
	return act
}

// VolumeZScore is the floored z-score of current volume against the
// baseline. Zero average or zero stddev means no signal, never NaN/Inf.
// Uncapped at extraction; every downstream combination applies its own cap.
func VolumeZScore(volume int64, base domain.BaselineAggregate) float64 {
	if !base.HasVolumeSignal() {
		return 0
	}
	return math.Max((float64(volume)-base.AvgDailyVolume)/base.StddevDailyVolume, 0)
}

// OIMomentum scores open-interest growth: (cur-prev)/prev x10, cap 5.0.
// No previous OI, or previous OI <= 0, means no signal.
func OIMomentum(cur, prev *int64) float64 {
	if cur == nil || prev == nil || *prev <= 0 {
		return 0
	}
	change := float64(*cur-*prev) / float64(*prev)
	return clamp(change*10, CapOIMomentum)
}

// PriceMomentum scores the underlying's move: |pct|*20, cap 3.0.
func PriceMomentum(stockChangePct float64) float64 {
	return clamp(math.Abs(stockChangePct)*20, CapPriceMomentum)
}

// VolatilitySkew scores IV divergence from realized vol:
// |iv-hv|/hv x2, cap 2.0. Missing IV or non-positive HV means no signal.
func VolatilitySkew(iv *float64, historicalVol float64) float64 {
	if iv == nil || *iv <= 0 || historicalVol <= 0 {
		return 0
	}
	return clamp(math.Abs(*iv-historicalVol)/historicalVol*2, CapVolatilitySkew)
}

// TimeDecay scores expiry proximity: max(2 - dte/15, 0).
func TimeDecay(daysToExpiry int) float64 {
	return math.Max(2.0-float64(daysToExpiry)/15.0, 0)
}

// GreeksAlignment scores directional leverage: |delta|*2 + gamma*100,
// cap 3.0. Missing Greeks degrade to their neutral zero contribution.
func GreeksAlignment(delta, gamma *float64) float64 {
	v := 0.0
	if delta != nil {
		v += math.Abs(*delta) * 2
	}
	if gamma != nil && *gamma > 0 {
		v += *gamma * 100
	}
	return clamp(v, CapGreeksAlignment)
}

// StrikeConcentration scores how much of the side's volume sits on the
// contract's own strike: share x1.5, cap 2.0.
func (a SymbolActivity) StrikeConcentration(o *domain.OptionObservation) float64 {
	sideVol := a.sideVolume[o.Side]
	if sideVol <= 0 {
		return 0
	}
	share := float64(a.strikeVolume[strikeKey{side: o.Side, strike: o.Strike.String()}]) / float64(sideVol)
	return clamp(share*1.5, CapStrikeConcentration)
}

// MarketCapFactor gives small names a bonus: 2.0 under $1B, 1.0 under $5B.
// Unknown market cap (<=0) is treated as large-cap.
func MarketCapFactor(marketCap float64) float64 {
	switch {
	case marketCap <= 0:
		return 0
	case marketCap < microCapCutoff:
		return 2.0
	case marketCap < smallCapCutoff:
		return 1.0
	default:
		return 0
	}
}

// LiquidityFactor scores volume against the baseline average:
// log(ratio+1) x1.5, cap 2.5. Zero-average baseline means no signal.
func LiquidityFactor(volume int64, base domain.BaselineAggregate) float64 {
	if base.AvgDailyVolume <= 0 {
		return 0
	}
	ratio := float64(volume) / base.AvgDailyVolume
	return clamp(math.Log(ratio+1)*1.5, CapLiquidityFactor)
}

// OTMCallConcentration scores how much call flow targets out-of-the-money
// strikes: otm_ratio x1.5 + short-term-otm_ratio x1.5, cap 3.0.
// Zero call volume means no signal.
func (a SymbolActivity) OTMCallConcentration() float64 {
	if a.CallVolume <= 0 {
		return 0
	}
	otmRatio := float64(a.OTMCallVolume) / float64(a.CallVolume)
	shortOTMRatio := float64(a.ShortTermOTMCallVolume) / float64(a.CallVolume)
	return clamp(otmRatio*1.5+shortOTMRatio*1.5, CapOTMCallConcentration)
}

// DirectionalBias is a stepwise function of the call share of total volume.
// Breakpoints are inclusive and checked in descending-ratio order; a heavy
// put skew (<=0.2) scores as a bearish signal.
func (a SymbolActivity) DirectionalBias() float64 {
	if a.TotalVolume <= 0 {
		return 0
	}
	callRatio := float64(a.CallVolume) / float64(a.TotalVolume)
	switch {
	case callRatio >= 0.8:
		return 2.0
	case callRatio >= 0.7:
		return 1.5
	case callRatio >= 0.6:
		return 1.0
	case callRatio <= 0.2:
		return 1.5
	default:
		return 0
	}
}

// TimePressure scores expiry clustering. Buckets are cumulative: volume
// expiring within a week also counts in the short-term bucket, so a book
// that is 100% inside seven days reaches the full 2.0 cap.
func (a SymbolActivity) TimePressure() float64 {
	if a.TotalVolume <= 0 {
		return 0
	}
	total := float64(a.TotalVolume)
	weekRatio := float64(a.ThisWeekVolume) / total
	shortRatio := float64(a.ShortTermVolume) / total
	return clamp(weekRatio*1.2+shortRatio*0.8, CapTimePressure)
}

// ContractInput bundles everything contract-level factor extraction needs.
type ContractInput struct {
	Observation *domain.OptionObservation
	Activity    SymbolActivity
	Baseline    domain.BaselineAggregate // side baseline; zero value when absent
	HasBaseline bool
	Market      domain.MarketContext
	AsOf        time.Time
}

// ContractFactors computes the full factor set for one contract. Every
// field of the result is within [0, cap] for all inputs.
func (e *Extractor) ContractFactors(in ContractInput) domain.FactorSet {
	o := in.Observation
	dte := o.DaysToExpiry(in.AsOf)

	fs := domain.FactorSet{
		PriceMomentum:        PriceMomentum(in.Market.StockChangePct),
		VolatilitySkew:       VolatilitySkew(o.ImpliedVol, in.Market.HistoricalVol),
		TimeDecay:            TimeDecay(dte),
		GreeksAlignment:      GreeksAlignment(o.Delta, o.Gamma),
		OIMomentum:           OIMomentum(o.OpenInterest, o.PrevOpenInterest),
		StrikeConcentration:  in.Activity.StrikeConcentration(o),
		MarketCapFactor:      MarketCapFactor(in.Market.MarketCap),
		OTMCallConcentration: in.Activity.OTMCallConcentration(),
		DirectionalBias:      in.Activity.DirectionalBias(),
		TimePressure:         in.Activity.TimePressure(),
	}
	// Volume factors are contract-local: each contract's own session
	// volume against the side baseline, so one loud contract does not
	// inflate its quiet neighbors.
	if in.HasBaseline {
		fs.VolumeZScore = VolumeZScore(o.SessionVolume, in.Baseline)
		fs.LiquidityFactor = LiquidityFactor(o.SessionVolume, in.Baseline)
	}
	fs.PatternRecognition = e.PatternScore(PatternInput{
		Observation:   o,
		Activity:      in.Activity,
		Market:        in.Market,
		DaysToExpiry:  dte,
		VolumeRatio:   volumeRatio(o.SessionVolume, in.Baseline, in.HasBaseline),
		SideAvgVolume: sideAvg(in.Baseline, in.HasBaseline),
		OTMThreshold:  e.otmThreshold,
	})
	return fs
}

func volumeRatio(volume int64, base domain.BaselineAggregate, has bool) float64 {
	if !has || base.AvgDailyVolume <= 0 {
		return 0
	}
	return float64(volume) / base.AvgDailyVolume
}

func sideAvg(base domain.BaselineAggregate, has bool) float64 {
	if !has {
		return 0
	}
	return base.AvgDailyVolume
}

func clamp(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Min(v, limit)
}
