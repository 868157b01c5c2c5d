package redis

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/infrastructure/messaging"
)

// EventBusClient adapts the cache connection to the messaging.RedisClient
// interface so the Redis event bus can ride on the same go-redis pool.
type EventBusClient struct {
	cache *Cache
}

// NewEventBusClient creates a new adapter around an established cache.
func NewEventBusClient(cache *Cache) *EventBusClient {
	return &EventBusClient{cache: cache}
}

// Publish sends a message to a Redis channel.
func (c *EventBusClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.cache.Publish(ctx, channel, message)
}

// Subscribe opens a subscription and pumps messages until ctx is cancelled.
func (c *EventBusClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	pubsub := c.cache.Subscribe(ctx, channels...)

	// Confirm the subscription before returning so the caller never
	// publishes into a channel nobody listens on yet.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying connection is owned by the cache.
func (c *EventBusClient) Close() error {
	return nil
}
