package publish

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"pump-trade-feed/internal/domain"
)

func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	pub, err := NewRedisPublisher(ctx, RedisOptions{Addr: addr, Channel: "pump:trades"})
	require.NoError(t, err)
	defer pub.Close()
	assert.Equal(t, "redis", pub.Name())

	sub := redis.NewClient(&redis.Options{Addr: addr})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "pump:trades")
	defer ps.Close()
	_, err = ps.Receive(ctx)
	require.NoError(t, err)

	first := sampleEvent()
	second := sampleEvent()
	second.ID = "second"
	second.Direction = domain.DirectionSell
	require.NoError(t, pub.InsertBulk(ctx, []*domain.TradeEvent{first, second}))

	ch := ps.Channel()
	var got []Message
	for len(got) < 2 {
		select {
		case msg := <-ch:
			var m Message
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &m))
			got = append(got, m)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for published trades")
		}
	}

	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, "sell", got[1].Direction)
	assert.Equal(t, "West", got[1].User)
}

func TestNewRedisPublisher_Errors(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), RedisOptions{Addr: "localhost:6379"})
	assert.Error(t, err, "channel is required")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err = NewRedisPublisher(ctx, RedisOptions{Addr: "127.0.0.1:1", Channel: "c"})
	assert.Error(t, err)
}
