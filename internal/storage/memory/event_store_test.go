package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/storage"
)

func rec(i int) domain.TradeRecord {
	return domain.TradeRecord{
		User:      fmt.Sprintf("user%d", i),
		SolAmount: fmt.Sprintf("%d.0000", i),
		Name:      "DOGE",
		Timestamp: "2023-11-14 22:13:20",
	}
}

func TestEventStore_NewestFirst(t *testing.T) {
	store := NewEventStore(5)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(domain.DirectionBuy, rec(i)))

		got, err := store.Snapshot(domain.DirectionBuy, 0)
		require.NoError(t, err)
		assert.Equal(t, rec(i), got[0], "latest insert must be at index 0")
	}

	got, err := store.Snapshot(domain.DirectionBuy, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.TradeRecord{rec(2), rec(1), rec(0)}, got)

	sells, err := store.Snapshot(domain.DirectionSell, 0)
	require.NoError(t, err)
	assert.Empty(t, sells, "directions are independent")
}

func TestEventStore_CapacityDropsTail(t *testing.T) {
	const capacity = 4
	store := NewEventStore(capacity)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Insert(domain.DirectionSell, rec(i)))

		want := i + 1
		if want > capacity {
			want = capacity
		}
		require.Equal(t, want, store.Len(domain.DirectionSell))

		got, err := store.Snapshot(domain.DirectionSell, 0)
		require.NoError(t, err)
		// Oldest surviving record is always i-(len-1).
		assert.Equal(t, rec(i-(len(got)-1)), got[len(got)-1])
	}
}

func TestEventStore_SnapshotLimit(t *testing.T) {
	store := NewEventStore(50)
	for i := 0; i < 30; i++ {
		require.NoError(t, store.Insert(domain.DirectionBuy, rec(i)))
	}

	got, err := store.Snapshot(domain.DirectionBuy, 20)
	require.NoError(t, err)
	require.Len(t, got, 20)
	assert.Equal(t, rec(29), got[0])
	assert.Equal(t, rec(10), got[19])

	got, err = store.Snapshot(domain.DirectionBuy, 100)
	require.NoError(t, err)
	assert.Len(t, got, 30)
}

func TestEventStore_SnapshotIdempotent(t *testing.T) {
	store := NewEventStore(10)
	for i := 0; i < 7; i++ {
		require.NoError(t, store.Insert(domain.DirectionBuy, rec(i)))
	}

	first, err := store.Snapshot(domain.DirectionBuy, 5)
	require.NoError(t, err)
	second, err := store.Snapshot(domain.DirectionBuy, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Mutating a snapshot must not leak into the store.
	first[0].User = "mutated"
	third, err := store.Snapshot(domain.DirectionBuy, 5)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestEventStore_InvalidDirection(t *testing.T) {
	store := NewEventStore(10)

	err := store.Insert(domain.Direction("hold"), rec(1))
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	_, err = store.Snapshot(domain.Direction("hold"), 1)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
	assert.Equal(t, 0, store.Len(domain.Direction("hold")))
}

func TestEventStore_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewEventStore(0).Capacity())
	assert.Equal(t, 7, NewEventStore(7).Capacity())
}

// TestEventStore_ConcurrentNoTearing checks that readers only ever observe
// complete sequences: bounded by capacity, strictly decreasing insert index,
// and contiguous (no missing or duplicated middle element).
func TestEventStore_ConcurrentNoTearing(t *testing.T) {
	const (
		capacity = 50
		inserts  = 5000
		readers  = 8
	)
	store := NewEventStore(capacity)

	var wg sync.WaitGroup
	done := make(chan struct{})
	errCh := make(chan error, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				got, err := store.Snapshot(domain.DirectionBuy, 0)
				if err != nil {
					errCh <- err
					return
				}
				if len(got) > capacity {
					errCh <- fmt.Errorf("length %d exceeds capacity", len(got))
					return
				}
				for i := 1; i < len(got); i++ {
					var prev, cur int
					fmt.Sscanf(got[i-1].User, "user%d", &prev)
					fmt.Sscanf(got[i].User, "user%d", &cur)
					if prev != cur+1 {
						errCh <- fmt.Errorf("torn sequence at %d: %s then %s", i, got[i-1].User, got[i].User)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < inserts; i++ {
		require.NoError(t, store.Insert(domain.DirectionBuy, rec(i)))
	}
	close(done)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
	assert.Equal(t, capacity, store.Len(domain.DirectionBuy))
}
