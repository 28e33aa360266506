package memory

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

func testObs(symbol, ticker string, volume int64, asOf time.Time) *domain.OptionObservation {
	return &domain.OptionObservation{
		Symbol:          symbol,
		ContractTicker:  ticker,
		Side:            domain.SideCall,
		Strike:          decimal.NewFromInt(120),
		Expiration:      domain.DateOf(asOf).AddDate(0, 0, 10),
		SessionVolume:   volume,
		UnderlyingPrice: decimal.NewFromInt(100),
		AsOf:            asOf,
	}
}

func TestObservationStoreLatestPerContract(t *testing.T) {
	ctx := context.Background()
	store := NewObservationStore()
	morning := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	sessionClose := time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		testObs("ACME", "ACME-C120", 100, morning),
		testObs("ACME", "ACME-C120", 900, sessionClose),
		testObs("ZETA", "ZETA-C120", 50, morning),
	}))

	got, err := store.GetByDate(ctx, sessionClose)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTicker := map[string]*domain.OptionObservation{}
	for _, o := range got {
		byTicker[o.ContractTicker] = o
	}
	assert.Equal(t, int64(900), byTicker["ACME-C120"].SessionVolume)
	assert.Equal(t, int64(50), byTicker["ZETA-C120"].SessionVolume)
}

func TestObservationStoreFiltersDateAndZeroVolume(t *testing.T) {
	ctx := context.Background()
	store := NewObservationStore()
	today := time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		testObs("ACME", "ACME-C120", 100, yesterday),
		testObs("ACME", "ACME-C125", 0, today),
	}))

	got, err := store.GetByDate(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObservationStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewObservationStore()
	bad := testObs("", "ACME-C120", 100, time.Now())

	err := store.InsertBulk(ctx, []*domain.OptionObservation{bad})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestObservationStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewObservationStore()
	asOf := time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.OptionObservation{
		testObs("ACME", "ACME-C120", 100, asOf),
	}))

	first, err := store.GetByDate(ctx, asOf)
	require.NoError(t, err)
	first[0].SessionVolume = 999999

	second, err := store.GetByDate(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(100), second[0].SessionVolume)
}
