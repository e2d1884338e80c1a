package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/whattobuild/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// StatusBus fans request status changes out over Redis pub/sub so any API
// instance can stream them to a watching client.
type StatusBus struct {
	rdb *redis.Client
}

func NewStatusBus(rdb *redis.Client) *StatusBus {
	return &StatusBus{rdb: rdb}
}

func statusChannel(requestID string) string {
	return "research:status:" + requestID
}

func (b *StatusBus) Publish(ctx context.Context, ev models.StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, statusChannel(ev.RequestID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe delivers events for one request until ctx is done. The returned
// channel is closed when the subscription ends.
func (b *StatusBus) Subscribe(ctx context.Context, requestID string) (<-chan models.StatusEvent, error) {
	sub := b.rdb.Subscribe(ctx, statusChannel(requestID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan models.StatusEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev models.StatusEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
