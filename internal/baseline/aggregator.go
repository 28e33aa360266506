package baseline

import (
	"math"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// DefaultWindowDays is the trailing-window length used when none is
// configured.
const DefaultWindowDays = 30

// Aggregator computes per-(symbol, side) trailing-window baselines from
// daily stat rows. Compute is pure: same inputs, same snapshot.
type Aggregator struct {
	windowDays int
}

// NewAggregator creates an aggregator with the given trailing window.
// Non-positive windows fall back to DefaultWindowDays.
func NewAggregator(windowDays int) *Aggregator {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Aggregator{windowDays: windowDays}
}

// WindowDays reports the trailing-window length. Callers that need to
// load history for Compute should fetch at least this many days.
func (a *Aggregator) WindowDays() int {
	return a.windowDays
}

// Compute builds the baseline snapshot for a detection pass ending at
// endDate. Only stats dated within [endDate-windowDays, endDate-1] count —
// the event day itself never contaminates its own baseline. Keys with no
// rows in the window are absent from the returned map; callers must treat
// a missing key as "no comparison possible", not as a zero baseline.
func (a *Aggregator) Compute(stats []*domain.DailyOptionStat, endDate time.Time) map[domain.BaselineKey]domain.BaselineAggregate {
	end := domain.DateOf(endDate)
	start := end.AddDate(0, 0, -a.windowDays)

	type daily struct {
		total     float64
		shortTerm float64
		otm       float64
	}
	// Per key, one entry per distinct date. Duplicate rows for the same
	// date (replayed ingestion) are summed into a single day.
	perKey := make(map[domain.BaselineKey]map[time.Time]*daily)
	for _, s := range stats {
		d := domain.DateOf(s.Date)
		if d.Before(start) || !d.Before(end) {
			continue
		}
		key := domain.BaselineKey{Symbol: s.Symbol, Side: s.Side}
		days, ok := perKey[key]
		if !ok {
			days = make(map[time.Time]*daily)
			perKey[key] = days
		}
		entry, ok := days[d]
		if !ok {
			entry = &daily{}
			days[d] = entry
		}
		entry.total += float64(s.TotalVolume)
		entry.shortTerm += float64(s.ShortTermVolume)
		entry.otm += float64(s.OTMVolume)
	}

	out := make(map[domain.BaselineKey]domain.BaselineAggregate, len(perKey))
	for key, days := range perKey {
		totals := make([]float64, 0, len(days))
		shortTerms := make([]float64, 0, len(days))
		otms := make([]float64, 0, len(days))
		for _, e := range days {
			totals = append(totals, e.total)
			shortTerms = append(shortTerms, e.shortTerm)
			otms = append(otms, e.otm)
		}

		agg := domain.BaselineAggregate{DaysCount: len(days)}
		agg.AvgDailyVolume = mean(totals)
		agg.StddevDailyVolume = sampleStddev(totals, agg.AvgDailyVolume)
		agg.AvgShortTermVolume = mean(shortTerms)
		agg.StddevShortTermVolume = sampleStddev(shortTerms, agg.AvgShortTermVolume)
		agg.AvgOTMVolume = mean(otms)
		agg.StddevOTMVolume = sampleStddev(otms, agg.AvgOTMVolume)
		out[key] = agg
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStddev uses the n-1 denominator, matching the SQL STDDEV the
// historical aggregates were originally defined with. Returns 0 for
// fewer than two samples.
func sampleStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
