package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

// SinkName identifies this archive in logs and metrics.
const SinkName = "clickhouse"

// TradeArchiveStore implements storage.TradeArchive using ClickHouse.
type TradeArchiveStore struct {
	conn *Conn
}

// NewTradeArchiveStore creates a new TradeArchiveStore.
func NewTradeArchiveStore(conn *Conn) *TradeArchiveStore {
	return &TradeArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchiveStore)(nil)

// Name returns the sink name.
func (s *TradeArchiveStore) Name() string {
	return SinkName
}

// InsertBulk appends events as one native batch. Duplicate event IDs are
// collapsed by the table engine on merge.
func (s *TradeArchiveStore) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, ev := range events {
		if !ev.Direction.IsValid() {
			return fmt.Errorf("event %s: %w: direction %q", ev.ID, storage.ErrInvalidInput, ev.Direction)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_archive (
			event_id, direction, address, label,
			lamports, sol_amount, name, mint, usd_market_cap,
			trade_time, session_id, received_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, ev := range events {
		// Pass nil values directly for Nullable columns
		err = batch.Append(
			ev.ID, string(ev.Direction), ev.Address, ev.Record.User,
			ev.Lamports, decimal.New(ev.Lamports, -9), ev.Record.Name, ev.Record.Mint, ev.Record.USDMarketCap,
			time.Unix(ev.UnixTime, 0).UTC(), ev.SessionID, ev.ReceivedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
