package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBroker(client, nil), mr
}

func TestRedisBroker_PublishReachesSubscriber(t *testing.T) {
	broker, _ := setupTestBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "cart-1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "cart-1"))

	select {
	case <-sub.C():
	case <-time.After(2 * time.Second):
		t.Fatal("expected notification from redis")
	}
}

func TestRedisBroker_UsesPerCartChannel(t *testing.T) {
	broker, mr := setupTestBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "cart-1")
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, 1, mr.PubSubNumSub("groupcart:cart-1")["groupcart:cart-1"])

	require.NoError(t, broker.Publish(ctx, "cart-2"))
	select {
	case <-sub.C():
		t.Fatal("unexpected notification for other cart")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBroker_CloseIsIdempotent(t *testing.T) {
	broker, _ := setupTestBroker(t)
	sub, err := broker.Subscribe(context.Background(), "cart-1")
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
}
