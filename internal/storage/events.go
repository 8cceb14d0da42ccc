package storage

import (
	"context"

	"pump-trade-feed/internal/domain"
)

// EventStore holds the most recent trades per direction, newest first.
// Implementations must be safe for one writer and any number of concurrent readers.
type EventStore interface {
	// Insert prepends a record to the direction's sequence, dropping the oldest
	// record once capacity is exceeded. Returns ErrInvalidInput for an unknown direction.
	Insert(direction domain.Direction, record domain.TradeRecord) error

	// Snapshot returns up to limit most recent records without mutating the store.
	// A limit <= 0 returns the whole sequence.
	Snapshot(direction domain.Direction, limit int) ([]domain.TradeRecord, error)

	// Len returns the current length of the direction's sequence.
	Len(direction domain.Direction) int

	// Capacity returns the per-direction capacity.
	Capacity() int
}

// TradeArchive is an append-only, write-only destination for accepted trades.
type TradeArchive interface {
	// InsertBulk appends a batch of trade events.
	InsertBulk(ctx context.Context, events []*domain.TradeEvent) error
}
