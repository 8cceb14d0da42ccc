package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

// SinkName identifies this archive in logs and metrics.
const SinkName = "postgres"

// TradeArchiveStore implements storage.TradeArchive using PostgreSQL.
type TradeArchiveStore struct {
	pool *Pool
}

// NewTradeArchiveStore creates a new TradeArchiveStore.
func NewTradeArchiveStore(pool *Pool) *TradeArchiveStore {
	return &TradeArchiveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchiveStore)(nil)

// Name returns the sink name.
func (s *TradeArchiveStore) Name() string {
	return SinkName
}

const insertTradeArchive = `
	INSERT INTO trade_archive (
		event_id, direction, address, label,
		lamports, sol_amount, name, mint, usd_market_cap,
		trade_time, session_id, received_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12
	)
	ON CONFLICT (event_id) DO NOTHING
`

// InsertBulk appends events in one transaction. Events already archived
// (same event_id) are skipped, so a retried batch is harmless.
func (s *TradeArchiveStore) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(insertTradeArchive,
			ev.ID, string(ev.Direction), ev.Address, ev.Record.User,
			ev.Lamports, solNumeric(ev.Lamports), ev.Record.Name, ev.Record.Mint, ev.Record.USDMarketCap,
			time.Unix(ev.UnixTime, 0).UTC(), ev.SessionID, ev.ReceivedAt.UTC(),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range events {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if pgErrorCode(err) == pgErrCheckViolation {
				return fmt.Errorf("insert trade archive: %w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert trade archive: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// solNumeric is lamports scaled to SOL without rounding.
func solNumeric(lamports int64) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(lamports), Exp: -9, Valid: true}
}
