package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// DailyStatStore implements storage.DailyStatStore using ClickHouse.
// The table is a ReplacingMergeTree keyed on (symbol, side, date):
// re-inserting a day's stats replaces the old row at merge time, and
// reads use FINAL so replacements are visible immediately.
type DailyStatStore struct {
	conn *Conn
}

// NewDailyStatStore creates a new DailyStatStore.
func NewDailyStatStore(conn *Conn) *DailyStatStore {
	return &DailyStatStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyStatStore = (*DailyStatStore)(nil)

// InsertBulk adds daily stat rows in a single batch.
func (s *DailyStatStore) InsertBulk(ctx context.Context, stats []*domain.DailyOptionStat) error {
	if len(stats) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_option_stats (
			date, symbol, side,
			total_volume, contract_count, short_term_volume, otm_volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range stats {
		err = batch.Append(
			domain.DateOf(st.Date), st.Symbol, string(st.Side),
			st.TotalVolume, uint32(st.ContractCount), st.ShortTermVolume, st.OTMVolume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRange returns stats with date in [start, end] inclusive, ordered by
// (symbol, side, date).
func (s *DailyStatStore) GetRange(ctx context.Context, start, end time.Time) ([]*domain.DailyOptionStat, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT date, symbol, side,
			total_volume, contract_count, short_term_volume, otm_volume
		FROM daily_option_stats FINAL
		WHERE date >= ? AND date <= ?
		ORDER BY symbol, side, date`,
		domain.DateOf(start), domain.DateOf(end))
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []*domain.DailyOptionStat
	for rows.Next() {
		var (
			st            domain.DailyOptionStat
			side          string
			contractCount uint32
		)
		if err := rows.Scan(
			&st.Date, &st.Symbol, &side,
			&st.TotalVolume, &contractCount, &st.ShortTermVolume, &st.OTMVolume,
		); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		parsedSide, ok := domain.ParseSide(side)
		if !ok {
			return nil, fmt.Errorf("%w: stored side %q", storage.ErrInvalidInput, side)
		}
		st.Side = parsedSide
		st.ContractCount = int(contractCount)
		st.Date = domain.DateOf(st.Date)
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return out, nil
}
