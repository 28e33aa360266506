package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

// ObservationStore implements storage.OptionObservationStore on Postgres.
type ObservationStore struct {
	pool *Pool
}

var _ storage.OptionObservationStore = (*ObservationStore)(nil)

// NewObservationStore creates a store backed by the given pool.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

const insertObservationSQL = `
INSERT INTO option_observations (
	symbol, contract_ticker, side, strike, expiration_date,
	session_volume, open_interest, prev_open_interest,
	implied_volatility, greeks_delta, greeks_gamma, greeks_theta, greeks_vega,
	underlying_price, as_of_timestamp
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// InsertBulk implements storage.OptionObservationStore. The batch is
// written in one transaction: any invalid record or key collision rolls
// back the whole batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.OptionObservation) error {
	for _, o := range obs {
		if !o.Valid() {
			return fmt.Errorf("%w: observation %s/%s", storage.ErrInvalidInput, o.Symbol, o.ContractTicker)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert observations: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(insertObservationSQL,
			o.Symbol, o.ContractTicker, string(o.Side), o.Strike.String(), o.Expiration,
			o.SessionVolume, o.OpenInterest, o.PrevOpenInterest,
			o.ImpliedVol, o.Delta, o.Gamma, o.Theta, o.Vega,
			o.UnderlyingPrice.String(), o.AsOf,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range obs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return fmt.Errorf("insert observation: %w", storage.ErrDuplicateKey)
			}
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close observation batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit observations: %w", err)
	}
	return nil
}

// GetByDate implements storage.OptionObservationStore. DISTINCT ON keeps
// only the most recent snapshot per contract within the day.
func (s *ObservationStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.OptionObservation, error) {
	day := domain.DateOf(date)
	next := day.AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (symbol, contract_ticker)
			symbol, contract_ticker, side, strike::text, expiration_date,
			session_volume, open_interest, prev_open_interest,
			implied_volatility, greeks_delta, greeks_gamma, greeks_theta, greeks_vega,
			underlying_price::text, as_of_timestamp
		FROM option_observations
		WHERE as_of_timestamp >= $1 AND as_of_timestamp < $2 AND session_volume > 0
		ORDER BY symbol, contract_ticker, as_of_timestamp DESC`,
		day, next)
	if err != nil {
		return nil, fmt.Errorf("query observations for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var out []*domain.OptionObservation
	for rows.Next() {
		var (
			o          domain.OptionObservation
			side       string
			strike     string
			underlying string
		)
		if err := rows.Scan(
			&o.Symbol, &o.ContractTicker, &side, &strike, &o.Expiration,
			&o.SessionVolume, &o.OpenInterest, &o.PrevOpenInterest,
			&o.ImpliedVol, &o.Delta, &o.Gamma, &o.Theta, &o.Vega,
			&underlying, &o.AsOf,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		parsedSide, ok := domain.ParseSide(side)
		if !ok {
			return nil, fmt.Errorf("%w: stored side %q", storage.ErrInvalidInput, side)
		}
		o.Side = parsedSide
		if o.Strike, err = decimal.NewFromString(strike); err != nil {
			return nil, fmt.Errorf("parse strike %q: %w", strike, err)
		}
		if o.UnderlyingPrice, err = decimal.NewFromString(underlying); err != nil {
			return nil, fmt.Errorf("parse underlying price %q: %w", underlying, err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}
