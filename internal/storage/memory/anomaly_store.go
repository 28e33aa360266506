package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

type anomalyKey struct {
	date   time.Time
	symbol string
}

// AnomalyStore is an in-memory AnomalyStore with upsert semantics.
type AnomalyStore struct {
	mu   sync.RWMutex
	rows map[anomalyKey]domain.ScoreRecord
}

var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// NewAnomalyStore creates an empty store.
func NewAnomalyStore() *AnomalyStore {
	return &AnomalyStore{rows: make(map[anomalyKey]domain.ScoreRecord)}
}

// Upsert implements storage.AnomalyStore. Last write wins.
func (s *AnomalyStore) Upsert(ctx context.Context, rec *domain.ScoreRecord) error {
	if rec.Symbol == "" || rec.EventDate.IsZero() {
		return fmt.Errorf("%w: score record needs event date and symbol", storage.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	copied.EventDate = domain.DateOf(rec.EventDate)
	s.rows[anomalyKey{date: copied.EventDate, symbol: rec.Symbol}] = copied
	return nil
}

// GetByDate implements storage.AnomalyStore.
func (s *AnomalyStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.ScoreRecord, error) {
	return s.GetTop(ctx, date, 0, 0)
}

// GetTop implements storage.AnomalyStore.
func (s *AnomalyStore) GetTop(ctx context.Context, date time.Time, minScore float64, limit int) ([]*domain.ScoreRecord, error) {
	day := domain.DateOf(date)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ScoreRecord
	for key, row := range s.rows {
		if !key.date.Equal(day) || row.Score < minScore {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
