package storage

import (
	"context"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// OptionObservationStore persists per-contract session snapshots.
// Implementations: postgres, memory.
type OptionObservationStore interface {
	// InsertBulk stores a batch of observations. Validation failures on
	// any record reject the whole batch with ErrInvalidInput.
	InsertBulk(ctx context.Context, obs []*domain.OptionObservation) error

	// GetByDate returns the latest snapshot per contract observed on the
	// given calendar date (UTC). Zero-volume rows are omitted.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.OptionObservation, error)
}

// DailyStatStore keeps the per-day (symbol, side) aggregates that feed
// baseline computation. Implementations: clickhouse, memory.
type DailyStatStore interface {
	// InsertBulk stores a batch of daily stats.
	InsertBulk(ctx context.Context, stats []*domain.DailyOptionStat) error

	// GetRange returns stats with date in [start, end] inclusive,
	// ordered by (symbol, side, date).
	GetRange(ctx context.Context, start, end time.Time) ([]*domain.DailyOptionStat, error)
}

// AnomalyStore persists score records. Implementations: postgres, memory.
type AnomalyStore interface {
	// Upsert stores a record keyed by (event_date, symbol) with
	// last-write-wins semantics: re-running a day replaces that day's
	// verdict for the symbol, never appends a second one.
	Upsert(ctx context.Context, rec *domain.ScoreRecord) error

	// GetByDate returns all records for an event date, ordered by score
	// descending then symbol ascending.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.ScoreRecord, error)

	// GetTop returns records for an event date with score >= minScore,
	// ordered by score descending then symbol ascending, limited to
	// limit rows (no limit when limit <= 0).
	GetTop(ctx context.Context, date time.Time, minScore float64, limit int) ([]*domain.ScoreRecord, error)
}
