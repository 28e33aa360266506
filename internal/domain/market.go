package domain

// MarketTrend is the broad-market regime used for score adjustments.
type MarketTrend string

const (
	TrendNeutral MarketTrend = "neutral"
	TrendBullish MarketTrend = "bullish"
	TrendBearish MarketTrend = "bearish"
)

// MarketContext carries per-symbol market conditions for a detection pass.
// Every field is optional; NeutralMarketContext gives the defaults used when
// no context provider is wired. MarketCap of 0 means unknown and is treated
// as large-cap (no small-cap bonuses).
type MarketContext struct {
	StockChangePct        float64 // today's underlying move, e.g. 0.03 = +3%
	HistoricalVol         float64 // trailing realized vol, annualized
	MarketVol             float64 // broad-market vol level
	Trend                 MarketTrend
	SectorMomentum        float64 // signed, e.g. 0.06 = strong sector move
	EarningsWithin30d     bool
	EarningsWithin7d      bool
	MajorEventsWithin7d   bool
	NegativeNewsSentiment float64 // [0,1]
	MarketCap             float64 // dollars, 0 = unknown
}

// NeutralMarketContext returns the defaults applied when no market data
// provider is configured: flat price, moderate vol, no catalysts.
func NeutralMarketContext() MarketContext {
	return MarketContext{
		HistoricalVol: 0.25,
		MarketVol:     0.20,
		Trend:         TrendNeutral,
	}
}
