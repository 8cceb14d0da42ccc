package memory

import (
	"sync"
	"sync/atomic"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

// DefaultCapacity is the per-direction capacity used when none is given.
const DefaultCapacity = 50

// EventStore is an in-memory implementation of storage.EventStore.
//
// Each direction is an immutable newest-first slice published through an
// atomic pointer. Insert builds a new slice and swaps it in, so readers always
// see a complete sequence and never wait on the writer.
type EventStore struct {
	capacity int

	mu    sync.Mutex // serializes writers
	buys  atomic.Pointer[[]domain.TradeRecord]
	sells atomic.Pointer[[]domain.TradeRecord]
}

// NewEventStore creates a new event store. A capacity <= 0 uses DefaultCapacity.
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &EventStore{capacity: capacity}
	empty := []domain.TradeRecord{}
	s.buys.Store(&empty)
	s.sells.Store(&empty)
	return s
}

func (s *EventStore) seq(direction domain.Direction) *atomic.Pointer[[]domain.TradeRecord] {
	switch direction {
	case domain.DirectionBuy:
		return &s.buys
	case domain.DirectionSell:
		return &s.sells
	default:
		return nil
	}
}

// Insert prepends record to the direction's sequence and drops the tail on overflow.
func (s *EventStore) Insert(direction domain.Direction, record domain.TradeRecord) error {
	p := s.seq(direction)
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := *p.Load()
	keep := len(old)
	if keep > s.capacity-1 {
		keep = s.capacity - 1
	}

	next := make([]domain.TradeRecord, keep+1)
	next[0] = record
	copy(next[1:], old[:keep])

	p.Store(&next)
	return nil
}

// Snapshot returns a copy of up to limit most recent records.
func (s *EventStore) Snapshot(direction domain.Direction, limit int) ([]domain.TradeRecord, error) {
	p := s.seq(direction)
	if p == nil {
		return nil, storage.ErrInvalidInput
	}

	cur := *p.Load()
	n := len(cur)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]domain.TradeRecord, n)
	copy(result, cur[:n])
	return result, nil
}

// Len returns the current length of the direction's sequence.
func (s *EventStore) Len(direction domain.Direction) int {
	p := s.seq(direction)
	if p == nil {
		return 0
	}
	return len(*p.Load())
}

// Capacity returns the per-direction capacity.
func (s *EventStore) Capacity() int {
	return s.capacity
}

var _ storage.EventStore = (*EventStore)(nil)
