package publish

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pump-trade-feed/internal/domain"
)

// RedisOptions configures the Redis publisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisPublisher publishes trades on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("redis channel is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     4,
		MinIdleConns: 1,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &RedisPublisher{client: client, channel: opts.Channel}, nil
}

// Name returns the sink name.
func (p *RedisPublisher) Name() string {
	return "redis"
}

// InsertBulk publishes every event in one pipelined round trip.
func (p *RedisPublisher) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, ev := range events {
		data, err := Encode(ev)
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", ev.ID, err)
		}
		pipe.Publish(ctx, p.channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}

// Close releases the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
