// Package eventbus publishes simulation telemetry to a Redis stream.
// The simulator only produces events; nothing here is load-bearing for
// trading decisions.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/mbit/botsim/internal/types"
)

type RedisEventBus struct {
	client *redis.Client
	stream string
}

// NewRedisEventBus connects to Redis and verifies the connection.
func NewRedisEventBus(addr, stream string) (*RedisEventBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", addr).Str("stream", stream).Msg("Connected to Redis")

	return &RedisEventBus{client: client, stream: stream}, nil
}

// Publish appends one event to the stream.
func (b *RedisEventBus) Publish(ctx context.Context, event types.BusEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	values := map[string]interface{}{
		"id":        event.ID,
		"type":      event.Type,
		"symbol":    event.Symbol,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      string(data),
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("stream", b.stream).
		Str("type", event.Type).
		Msg("Published event")

	return nil
}

func (b *RedisEventBus) Close() error {
	return b.client.Close()
}
