package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore on Postgres. Records are
// upserted on (event_date, symbol): re-running a detection pass replaces
// the day's verdicts instead of appending.
type AnomalyStore struct {
	pool *Pool
}

var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// NewAnomalyStore creates a store backed by the given pool.
func NewAnomalyStore(pool *Pool) *AnomalyStore {
	return &AnomalyStore{pool: pool}
}

const upsertAnomalySQL = `
INSERT INTO anomaly_events (
	event_date, symbol, direction, kind, score, tier,
	supporting_factors, risk_factors, details, as_of_timestamp, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (event_date, symbol) DO UPDATE SET
	direction = EXCLUDED.direction,
	kind = EXCLUDED.kind,
	score = EXCLUDED.score,
	tier = EXCLUDED.tier,
	supporting_factors = EXCLUDED.supporting_factors,
	risk_factors = EXCLUDED.risk_factors,
	details = EXCLUDED.details,
	as_of_timestamp = EXCLUDED.as_of_timestamp,
	updated_at = now()`

// Upsert implements storage.AnomalyStore.
func (s *AnomalyStore) Upsert(ctx context.Context, rec *domain.ScoreRecord) error {
	if rec.Symbol == "" || rec.EventDate.IsZero() {
		return fmt.Errorf("%w: score record needs event date and symbol", storage.ErrInvalidInput)
	}
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("marshal score details for %s: %w", rec.Symbol, err)
	}

	supporting := rec.SupportingFactors
	if supporting == nil {
		supporting = []string{}
	}
	risks := rec.RiskFactors
	if risks == nil {
		risks = []string{}
	}

	_, err = s.pool.Exec(ctx, upsertAnomalySQL,
		domain.DateOf(rec.EventDate), rec.Symbol, rec.Direction, rec.Kind,
		rec.Score, string(rec.Tier), supporting, risks, details, rec.AsOf,
	)
	if err != nil {
		return fmt.Errorf("upsert anomaly %s/%s: %w",
			rec.EventDate.Format("2006-01-02"), rec.Symbol, err)
	}
	return nil
}

// GetByDate implements storage.AnomalyStore.
func (s *AnomalyStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.ScoreRecord, error) {
	return s.query(ctx, date, 0, 0)
}

// GetTop implements storage.AnomalyStore.
func (s *AnomalyStore) GetTop(ctx context.Context, date time.Time, minScore float64, limit int) ([]*domain.ScoreRecord, error) {
	return s.query(ctx, date, minScore, limit)
}

func (s *AnomalyStore) query(ctx context.Context, date time.Time, minScore float64, limit int) ([]*domain.ScoreRecord, error) {
	day := domain.DateOf(date)

	sql := `
		SELECT event_date, symbol, direction, kind, score, tier,
			supporting_factors, risk_factors, details, as_of_timestamp
		FROM anomaly_events
		WHERE event_date = $1 AND score >= $2
		ORDER BY score DESC, symbol ASC`
	args := []any{day, minScore}
	if limit > 0 {
		sql += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var out []*domain.ScoreRecord
	for rows.Next() {
		var (
			rec     domain.ScoreRecord
			tier    string
			details []byte
		)
		if err := rows.Scan(
			&rec.EventDate, &rec.Symbol, &rec.Direction, &rec.Kind,
			&rec.Score, &tier, &rec.SupportingFactors, &rec.RiskFactors,
			&details, &rec.AsOf,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		rec.Tier = domain.ConvictionTier(tier)
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, fmt.Errorf("unmarshal score details for %s: %w", rec.Symbol, err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomalies: %w", err)
	}
	return out, nil
}
