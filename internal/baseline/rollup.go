package baseline

import (
	"sort"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// RollupOptions controls how a day's observations fold into daily stats.
type RollupOptions struct {
	ShortTermDays int
	OTMThreshold  float64
}

// DailyStatsFromObservations collapses one day's option observations into
// per-(symbol, side) DailyOptionStat rows, the shape the history store keeps
// for baseline computation. Output is sorted by (symbol, side) so repeated
// rollups of the same input are byte-identical.
func DailyStatsFromObservations(date time.Time, obs []*domain.OptionObservation, opts RollupOptions) []*domain.DailyOptionStat {
	d := domain.DateOf(date)
	byKey := make(map[domain.BaselineKey]*domain.DailyOptionStat)
	for _, o := range obs {
		if !o.Valid() || o.SessionVolume == 0 {
			continue
		}
		key := domain.BaselineKey{Symbol: o.Symbol, Side: o.Side}
		stat, ok := byKey[key]
		if !ok {
			stat = &domain.DailyOptionStat{Date: d, Symbol: o.Symbol, Side: o.Side}
			byKey[key] = stat
		}
		stat.TotalVolume += o.SessionVolume
		stat.ContractCount++
		if dte := o.DaysToExpiry(d); dte >= 0 && dte <= opts.ShortTermDays {
			stat.ShortTermVolume += o.SessionVolume
		}
		if o.IsOTM(opts.OTMThreshold) {
			stat.OTMVolume += o.SessionVolume
		}
	}

	out := make([]*domain.DailyOptionStat, 0, len(byKey))
	for _, stat := range byKey {
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Side < out[j].Side
	})
	return out
}
