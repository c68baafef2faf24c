package realtime

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroker relays notifications through Redis pub/sub so that API
// instances behind a load balancer see each other's writes.
type RedisBroker struct {
	client *redis.Client
	logger *log.Logger
}

func NewRedisBroker(client *redis.Client, logger *log.Logger) *RedisBroker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, cartID string) error {
	if err := b.client.Publish(ctx, channelName(cartID), "changed").Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, cartID string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, channelName(cartID))
	// Wait for the subscribe confirmation so no publish is missed after return.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := newSubscription(func() {
		if err := ps.Close(); err != nil {
			b.logger.Printf("realtime: close pubsub cart_id=%s error=%v", cartID, err)
		}
	})

	go func() {
		msgs := ps.Channel()
		for {
			select {
			case <-sub.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				sub.notify()
			}
		}
	}()
	return sub, nil
}

func channelName(cartID string) string {
	return fmt.Sprintf("groupcart:%s", cartID)
}
