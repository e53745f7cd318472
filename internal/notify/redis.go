package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMedium is a SharedMedium backed by Redis: the value lands in a key
// and pub/sub carries the change notification to every other process.
type RedisMedium struct {
	client  *redis.Client
	channel string
}

// NewRedisMedium wraps an existing client. All broadcasts share one
// pub/sub channel.
func NewRedisMedium(client *redis.Client, channel string) *RedisMedium {
	return &RedisMedium{client: client, channel: channel}
}

func (r *RedisMedium) Write(ctx context.Context, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.Publish(ctx, r.channel, value)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis broadcast write: %w", err)
	}
	return nil
}

func (r *RedisMedium) Erase(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis broadcast erase: %w", err)
	}
	return nil
}

func (r *RedisMedium) Subscribe(ctx context.Context, fn func(value []byte)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel)
	// Force the subscription onto the wire before returning.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := ps.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fn([]byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		ps.Close()
		<-done
	}
	return cancel, nil
}
