package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

type statKey struct {
	date   time.Time
	symbol string
	side   domain.Side
}

// DailyStatStore is an in-memory DailyStatStore. Re-inserting a
// (date, symbol, side) key replaces the previous row, mirroring the
// ReplacingMergeTree semantics of the ClickHouse backend.
type DailyStatStore struct {
	mu   sync.RWMutex
	rows map[statKey]domain.DailyOptionStat
}

var _ storage.DailyStatStore = (*DailyStatStore)(nil)

// NewDailyStatStore creates an empty store.
func NewDailyStatStore() *DailyStatStore {
	return &DailyStatStore{rows: make(map[statKey]domain.DailyOptionStat)}
}

// InsertBulk implements storage.DailyStatStore.
func (s *DailyStatStore) InsertBulk(ctx context.Context, stats []*domain.DailyOptionStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stats {
		copied := *st
		copied.Date = domain.DateOf(st.Date)
		s.rows[statKey{date: copied.Date, symbol: st.Symbol, side: st.Side}] = copied
	}
	return nil
}

// GetRange implements storage.DailyStatStore.
func (s *DailyStatStore) GetRange(ctx context.Context, start, end time.Time) ([]*domain.DailyOptionStat, error) {
	from, to := domain.DateOf(start), domain.DateOf(end)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DailyOptionStat
	for _, row := range s.rows {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		if out[i].Side != out[j].Side {
			return out[i].Side < out[j].Side
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
