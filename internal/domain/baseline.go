package domain

import "time"

// DailyOptionStat is a per-day aggregate of option activity for one
// (symbol, side). Corresponds to daily_option_stats table in ClickHouse.
// These rows are the raw material for baseline computation.
type DailyOptionStat struct {
	Date            time.Time // UTC midnight
	Symbol          string
	Side            Side
	TotalVolume     int64
	ContractCount   int
	ShortTermVolume int64 // volume on contracts expiring within the short-term cutoff
	OTMVolume       int64 // volume on out-of-the-money contracts
}

// BaselineKey identifies a baseline aggregate.
type BaselineKey struct {
	Symbol string
	Side   Side
}

// BaselineAggregate holds trailing-window statistics for one (symbol, side).
// Recomputed fresh on every detection pass; immutable within a pass.
// A key with no historical data has no aggregate at all — downstream code
// must treat a missing baseline as "no comparison possible", not as zero.
type BaselineAggregate struct {
	DaysCount             int
	AvgDailyVolume        float64
	StddevDailyVolume     float64
	AvgShortTermVolume    float64
	StddevShortTermVolume float64
	AvgOTMVolume          float64
	StddevOTMVolume       float64
}

// HasVolumeSignal reports whether the aggregate can support a z-score.
// Zero average or zero stddev means any deviation measure is undefined
// and must contribute nothing to the composite.
func (b BaselineAggregate) HasVolumeSignal() bool {
	return b.AvgDailyVolume > 0 && b.StddevDailyVolume > 0
}
