package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

func archiveEvent(direction domain.Direction, lamports int64) *domain.TradeEvent {
	return &domain.TradeEvent{
		ID:        uuid.NewString(),
		Direction: direction,
		Address:   "JDd3hy3gQn2V982mi1zqhNqUw1GfV2UL6g76STojCJPN",
		Lamports:  lamports,
		UnixTime:  1700000000,
		Record: domain.TradeRecord{
			User:      "West",
			SolAmount: "0.5000",
			Name:      "DOGE",
			Timestamp: "2023-11-14 22:13:20",
		},
		SessionID:  "session-1",
		ReceivedAt: time.Date(2023, 11, 14, 22, 13, 21, 0, time.UTC),
	}
}

func ptr[T any](v T) *T { return &v }

func TestTradeArchiveStore_InsertBulk(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewTradeArchiveStore(pool)
	assert.Equal(t, "postgres", store.Name())

	buy := archiveEvent(domain.DirectionBuy, 500000000)
	buy.Record.Mint = ptr("Mint111")
	buy.Record.USDMarketCap = ptr(4242.5)
	sell := archiveEvent(domain.DirectionSell, 1234567890)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeEvent{buy, sell}))

	var (
		direction, label, solAmount string
		mint                        *string
		marketCap                   *float64
		tradeTime                   time.Time
	)
	err := pool.QueryRow(ctx, `
		SELECT direction, label, sol_amount::text, mint, usd_market_cap, trade_time
		FROM trade_archive WHERE event_id = $1`, buy.ID,
	).Scan(&direction, &label, &solAmount, &mint, &marketCap, &tradeTime)
	require.NoError(t, err)
	assert.Equal(t, "buy", direction)
	assert.Equal(t, "West", label)
	assert.Equal(t, "0.500000000", solAmount)
	require.NotNil(t, mint)
	assert.Equal(t, "Mint111", *mint)
	require.NotNil(t, marketCap)
	assert.Equal(t, 4242.5, *marketCap)
	assert.True(t, tradeTime.Equal(time.Unix(1700000000, 0)))

	err = pool.QueryRow(ctx, `SELECT sol_amount::text, mint FROM trade_archive WHERE event_id = $1`, sell.ID).
		Scan(&solAmount, &mint)
	require.NoError(t, err)
	assert.Equal(t, "1.234567890", solAmount)
	assert.Nil(t, mint)
}

func TestTradeArchiveStore_RetryIsIdempotent(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewTradeArchiveStore(pool)

	events := []*domain.TradeEvent{
		archiveEvent(domain.DirectionBuy, 1),
		archiveEvent(domain.DirectionSell, 2),
	}
	require.NoError(t, store.InsertBulk(ctx, events))
	require.NoError(t, store.InsertBulk(ctx, events))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM trade_archive`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestTradeArchiveStore_InvalidDirectionRollsBack(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewTradeArchiveStore(pool)

	good := archiveEvent(domain.DirectionBuy, 1)
	bad := archiveEvent(domain.Direction("hold"), 2)

	err := store.InsertBulk(ctx, []*domain.TradeEvent{good, bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM trade_archive`).Scan(&count))
	assert.Zero(t, count, "failed batch leaves no rows")
}

func TestTradeArchiveStore_Empty(t *testing.T) {
	store := NewTradeArchiveStore(nil)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestPgErrorCode(t *testing.T) {
	assert.Equal(t, "23505", pgErrorCode(&pgconn.PgError{Code: pgErrUniqueViolation}))
	assert.Equal(t, "", pgErrorCode(errors.New("boom")))
}
