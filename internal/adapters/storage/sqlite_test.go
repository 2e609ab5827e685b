package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/adapters/storage"
	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSettlement(slug string, pnl float64, at time.Time) domain.RoundSettlement {
	return domain.RoundSettlement{
		MarketSlug:  slug,
		Instrument:  "BTC",
		PriceToBeat: 50000,
		FinalPrice:  50120,
		Trades:      2,
		SpentUSDC:   196,
		RealizedPnL: pnl,
		SettledAt:   at,
	}
}

func TestSQLiteStorage_SaveAndGetSettlements(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveSettlement(ctx, makeSettlement("btc-up-or-down-1", 1.5, now.Add(-time.Minute))))
	require.NoError(t, db.SaveSettlement(ctx, makeSettlement("btc-up-or-down-2", -0.8, now)))

	got, err := db.GetSettlements(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordenados por settled_at desc
	assert.Equal(t, "btc-up-or-down-2", got[0].MarketSlug)
	assert.InDelta(t, -0.8, got[0].RealizedPnL, 1e-9)
	assert.Equal(t, "btc-up-or-down-1", got[1].MarketSlug)
}

func TestSQLiteStorage_SettlementUpsert(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveSettlement(ctx, makeSettlement("btc-up-or-down-1", 1.0, now)))

	// El mismo slug vuelve a liquidarse: gana el último snapshot
	updated := makeSettlement("btc-up-or-down-1", 2.5, now.Add(time.Second))
	require.NoError(t, db.SaveSettlement(ctx, updated))

	got, err := db.GetSettlements(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.5, got[0].RealizedPnL, 1e-9)
}

func TestSQLiteStorage_GetSettlementsRangeFilter(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveSettlement(ctx, makeSettlement("old", 1.0, now.Add(-48*time.Hour))))
	require.NoError(t, db.SaveSettlement(ctx, makeSettlement("recent", 1.0, now)))

	got, err := db.GetSettlements(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "recent", got[0].MarketSlug)
}

func TestSQLiteStorage_TradeEventIdempotent(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	ev := domain.TradeEvent{
		ID:         "ev-1",
		Action:     domain.ActionEntry,
		MarketSlug: "btc-up-or-down-1",
		Instrument: "BTC",
		Direction:  domain.DirectionUp,
		Price:      0.98,
		Size:       100,
		Reason:     "band entry",
		At:         time.Now().UTC(),
	}

	require.NoError(t, db.SaveTradeEvent(ctx, ev))
	// El mismo ID dos veces no falla ni duplica
	require.NoError(t, db.SaveTradeEvent(ctx, ev))
}
