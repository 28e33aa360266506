package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
	"github.com/Karchensky/insider-trades-sub000/internal/storage"
)

func makeObservation(symbol, ticker string, volume int64, asOf time.Time) *domain.OptionObservation {
	return &domain.OptionObservation{
		Symbol:          symbol,
		ContractTicker:  ticker,
		Side:            domain.SideCall,
		Strike:          decimal.NewFromFloat(122.5),
		Expiration:      domain.DateOf(asOf).AddDate(0, 0, 14),
		SessionVolume:   volume,
		OpenInterest:    ptr(int64(5000)),
		ImpliedVol:      ptr(0.85),
		Delta:           ptr(0.35),
		Gamma:           ptr(0.02),
		UnderlyingPrice: decimal.NewFromFloat(101.25),
		AsOf:            asOf,
	}
}

func TestObservationStoreInsertAndGetByDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewObservationStore(pool)

	asOf := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		makeObservation("ACME", "ACME-C122", 1200, asOf),
		makeObservation("ZETA", "ZETA-C122", 800, asOf),
	}))

	got, err := store.GetByDate(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTicker := map[string]*domain.OptionObservation{}
	for _, o := range got {
		byTicker[o.ContractTicker] = o
	}
	acme := byTicker["ACME-C122"]
	require.NotNil(t, acme)
	assert.Equal(t, "ACME", acme.Symbol)
	assert.Equal(t, domain.SideCall, acme.Side)
	assert.Equal(t, int64(1200), acme.SessionVolume)
	assert.True(t, acme.Strike.Equal(decimal.NewFromFloat(122.5)))
	assert.True(t, acme.UnderlyingPrice.Equal(decimal.NewFromFloat(101.25)))
	require.NotNil(t, acme.OpenInterest)
	assert.Equal(t, int64(5000), *acme.OpenInterest)
	require.NotNil(t, acme.ImpliedVol)
	assert.InDelta(t, 0.85, *acme.ImpliedVol, 1e-9)
	assert.Nil(t, acme.PrevOpenInterest)
	assert.Nil(t, acme.Theta)
}

func TestObservationStoreLatestSnapshotWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewObservationStore(pool)

	morning := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	afternoon := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		makeObservation("ACME", "ACME-C122", 300, morning),
		makeObservation("ACME", "ACME-C122", 4500, afternoon),
	}))

	got, err := store.GetByDate(ctx, morning)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4500), got[0].SessionVolume)
}

func TestObservationStoreDateIsolationAndZeroVolume(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewObservationStore(pool)

	today := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		makeObservation("ACME", "ACME-C122", 700, yesterday),
		makeObservation("ACME", "ACME-C125", 0, today),
	}))

	got, err := store.GetByDate(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.GetByDate(ctx, yesterday)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestObservationStoreRejectsInvalidBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewObservationStore(pool)

	asOf := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	bad := makeObservation("", "ACME-C122", 100, asOf)
	err := store.InsertBulk(ctx, []*domain.OptionObservation{bad})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestObservationStoreDuplicateKeyRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewObservationStore(pool)

	asOf := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		makeObservation("ACME", "ACME-C122", 100, asOf),
	}))

	err := store.InsertBulk(ctx, []*domain.OptionObservation{
		makeObservation("NEWCO", "NEWCO-C10", 100, asOf),
		makeObservation("ACME", "ACME-C122", 100, asOf), // same (symbol, ticker, as_of)
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// the whole batch rolled back, NEWCO must not be visible
	got, err := store.GetByDate(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ACME", got[0].Symbol)
}
