package detector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Karchensky/insider-trades-sub000/internal/baseline"
	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/observability"
	"github.com/Karchensky/insider-trades-sub000/internal/scoring"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// MarketContextProvider supplies per-symbol market conditions for a pass.
// NeutralProvider is used when no market data source is wired.
type MarketContextProvider func(symbol string) domain.MarketContext

// NeutralProvider returns neutral market conditions for every symbol.
func NeutralProvider(string) domain.MarketContext {
	return domain.NeutralMarketContext()
}

// Options configures a Detector.
type Options struct {
	Observations storage.OptionObservationStore
	DailyStats   storage.DailyStatStore
	Anomalies    storage.AnomalyStore
	Strategy     scoring.Strategy
	Aggregator   *baseline.Aggregator
	Market       MarketContextProvider
	Workers      int
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// Detector runs one detection pass: load the day's observations, build
// the baseline snapshot, score each symbol on a bounded worker pool, and
// upsert the resulting records.
type Detector struct {
	observations storage.OptionObservationStore
	dailyStats   storage.DailyStatStore
	anomalies    storage.AnomalyStore
	strategy     scoring.Strategy
	aggregator   *baseline.Aggregator
	market       MarketContextProvider
	workers      int
	logger       zerolog.Logger
	clock        func() time.Time
}

// New creates a Detector. Observations, DailyStats, Anomalies and
// Strategy are required; the rest default sensibly.
func New(opts Options) (*Detector, error) {
	if opts.Observations == nil || opts.DailyStats == nil || opts.Anomalies == nil {
		return nil, fmt.Errorf("detector: all three stores are required")
	}
	if opts.Strategy == nil {
		return nil, fmt.Errorf("detector: strategy is required")
	}
	d := &Detector{
		observations: opts.Observations,
		dailyStats:   opts.DailyStats,
		anomalies:    opts.Anomalies,
		strategy:     opts.Strategy,
		aggregator:   opts.Aggregator,
		market:       opts.Market,
		workers:      opts.Workers,
		logger:       opts.Logger,
		clock:        opts.Clock,
	}
	if d.aggregator == nil {
		d.aggregator = baseline.NewAggregator(baseline.DefaultWindowDays)
	}
	if d.market == nil {
		d.market = NeutralProvider
	}
	if d.workers <= 0 {
		d.workers = 4
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	return d, nil
}

// StrategyName reports which strategy this detector scores with.
func (d *Detector) StrategyName() string {
	return d.strategy.Name()
}

// RunResult summarizes one detection pass. StoreErrors holds per-symbol
// upsert failures; a non-empty list does not mean the pass failed.
type RunResult struct {
	EventDate         time.Time
	Strategy          string
	ContractsLoaded   int
	ContractsSkipped  int
	SymbolsAnalyzed   int
	AnomaliesDetected int
	AnomaliesStored   int
	StoreErrors       []string
	Records           []*domain.ScoreRecord
	Duration          time.Duration
}

// Run executes one pass for eventDate. Returns an error only when the
// pass cannot proceed at all (store reads failing); individual symbol
// persistence failures are collected in the result.
func (d *Detector) Run(ctx context.Context, eventDate time.Time) (*RunResult, error) {
	started := d.clock()
	day := domain.DateOf(eventDate)
	res := &RunResult{EventDate: day, Strategy: d.strategy.Name()}

	obs, err := d.observations.GetByDate(ctx, day)
	if err != nil {
		observability.RecordDetectionRun("failed", 0)
		return nil, fmt.Errorf("load observations for %s: %w", day.Format("2006-01-02"), err)
	}
	res.ContractsLoaded = len(obs)

	bySymbol := make(map[string][]*domain.OptionObservation)
	for _, o := range obs {
		if !o.Valid() {
			res.ContractsSkipped++
			d.logger.Warn().
				Str("symbol", o.Symbol).
				Str("contract", o.ContractTicker).
				Msg("skipping malformed observation")
			continue
		}
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}
	res.SymbolsAnalyzed = len(bySymbol)

	// The stat range is derived from the aggregator's window so loading
	// and baseline computation can never disagree on bounds.
	windowStart := day.AddDate(0, 0, -d.aggregator.WindowDays())
	windowEnd := day.AddDate(0, 0, -1)
	stats, err := d.dailyStats.GetRange(ctx, windowStart, windowEnd)
	if err != nil {
		observability.RecordDetectionRun("failed", 0)
		return nil, fmt.Errorf("load daily stats [%s, %s]: %w",
			windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"), err)
	}
	// Immutable for the remainder of the pass; workers share it read-only.
	baselines := d.aggregator.Compute(stats, day)

	records, err := d.scoreSymbols(ctx, day, bySymbol, baselines)
	if err != nil {
		observability.RecordDetectionRun("failed", 0)
		return nil, err
	}

	// Completion order is nondeterministic; impose the output order here.
	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].Symbol < records[j].Symbol
	})
	res.Records = records
	res.AnomaliesDetected = len(records)

	// Each upsert is independent: one symbol's failure must not abort or
	// corrupt the others.
	for _, rec := range records {
		if err := d.anomalies.Upsert(ctx, rec); err != nil {
			res.StoreErrors = append(res.StoreErrors,
				fmt.Sprintf("upsert %s: %v", rec.Symbol, err))
			d.logger.Error().Err(err).Str("symbol", rec.Symbol).Msg("anomaly upsert failed")
			continue
		}
		res.AnomaliesStored++
	}

	res.Duration = d.clock().Sub(started)
	observability.RecordDetectionRun("success", res.Duration.Seconds())
	observability.RecordContractsAnalyzed(res.ContractsLoaded - res.ContractsSkipped)
	observability.RecordSymbolsScored(res.SymbolsAnalyzed)
	observability.RecordAnomaliesStored(res.AnomaliesStored)

	d.logger.Info().
		Str("event_date", day.Format("2006-01-02")).
		Str("strategy", res.Strategy).
		Int("contracts", res.ContractsLoaded).
		Int("skipped", res.ContractsSkipped).
		Int("symbols", res.SymbolsAnalyzed).
		Int("anomalies", res.AnomaliesDetected).
		Int("stored", res.AnomaliesStored).
		Dur("duration", res.Duration).
		Msg("detection pass complete")
	return res, nil
}

// scoreSymbols fans symbols out over a bounded worker pool. Scoring is
// pure per symbol; only the shared result slice needs a lock.
func (d *Detector) scoreSymbols(
	ctx context.Context,
	day time.Time,
	bySymbol map[string][]*domain.OptionObservation,
	baselines map[domain.BaselineKey]domain.BaselineAggregate,
) ([]*domain.ScoreRecord, error) {
	var (
		mu      sync.Mutex
		records []*domain.ScoreRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	asOf := d.clock().UTC()
	for symbol, contracts := range bySymbol {
		symbol, contracts := symbol, contracts
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in := scoring.SymbolInput{
				Symbol:    symbol,
				EventDate: day,
				AsOf:      asOf,
				Contracts: contracts,
				Market:    d.market(symbol),
			}
			if b, ok := baselines[domain.BaselineKey{Symbol: symbol, Side: domain.SideCall}]; ok {
				in.CallBaseline = &b
			}
			if b, ok := baselines[domain.BaselineKey{Symbol: symbol, Side: domain.SidePut}]; ok {
				in.PutBaseline = &b
			}
			if rec, ok := d.strategy.Score(in); ok {
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score symbols: %w", err)
	}
	return records, nil
}
