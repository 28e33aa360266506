// Package memory provides mutex-guarded in-memory store implementations
// for tests and --use-memory runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// ObservationStore is an in-memory OptionObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	rows []domain.OptionObservation
}

var _ storage.OptionObservationStore = (*ObservationStore)(nil)

// NewObservationStore creates an empty store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// InsertBulk implements storage.OptionObservationStore.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.OptionObservation) error {
	for _, o := range obs {
		if !o.Valid() {
			return fmt.Errorf("%w: observation %s/%s", storage.ErrInvalidInput, o.Symbol, o.ContractTicker)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.rows = append(s.rows, *o)
	}
	return nil
}

// GetByDate implements storage.OptionObservationStore. Returns the
// latest snapshot per contract for the date, skipping zero-volume rows.
func (s *ObservationStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.OptionObservation, error) {
	day := domain.DateOf(date)
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		symbol string
		ticker string
	}
	latest := make(map[key]domain.OptionObservation)
	for _, row := range s.rows {
		if !domain.DateOf(row.AsOf).Equal(day) || row.SessionVolume == 0 {
			continue
		}
		k := key{symbol: row.Symbol, ticker: row.ContractTicker}
		if cur, ok := latest[k]; !ok || row.AsOf.After(cur.AsOf) {
			latest[k] = row
		}
	}

	out := make([]*domain.OptionObservation, 0, len(latest))
	for _, row := range latest {
		copied := row
		out = append(out, &copied)
	}
	return out, nil
}
