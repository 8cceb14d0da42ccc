// Package query serves read-only views of the recent trade store.
package query

import (
	"fmt"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

// DefaultLimit is the number of records returned per direction.
const DefaultLimit = 20

// Result holds the most recent trades per direction, newest first.
type Result struct {
	Buys  []domain.TradeRecord
	Sells []domain.TradeRecord
}

// Service answers recent-trade queries. It never mutates the store.
type Service struct {
	store storage.EventStore
	limit int
}

// NewService creates a query service. A limit <= 0 uses DefaultLimit;
// limits above the store capacity are clamped.
func NewService(store storage.EventStore, limit int) *Service {
	return &Service{store: store, limit: clamp(limit, store.Capacity())}
}

// Limit returns the default per-direction limit.
func (s *Service) Limit() int {
	return s.limit
}

// Recent returns the configured number of trades per direction.
func (s *Service) Recent() (Result, error) {
	return s.Trades(s.limit)
}

// Trades returns up to limit trades per direction. The configured limit is
// both the default (limit <= 0) and the ceiling. Empty directions yield
// empty, non-nil slices.
func (s *Service) Trades(limit int) (Result, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	buys, err := s.store.Snapshot(domain.DirectionBuy, limit)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot buys: %w", err)
	}
	sells, err := s.store.Snapshot(domain.DirectionSell, limit)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot sells: %w", err)
	}

	return Result{Buys: nonNil(buys), Sells: nonNil(sells)}, nil
}

func clamp(limit, capacity int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if capacity > 0 && limit > capacity {
		limit = capacity
	}
	return limit
}

func nonNil(records []domain.TradeRecord) []domain.TradeRecord {
	if records == nil {
		return []domain.TradeRecord{}
	}
	return records
}
