package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestPubSub_PublishSubscribe(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	pub := NewPublisher(client)
	sub := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *SyncEvent, 1)
	go func() {
		_ = sub.Subscribe(ctx, func(event *SyncEvent) {
			received <- event
		})
	}()

	// 等订阅建立
	time.Sleep(100 * time.Millisecond)

	err := pub.PublishSyncEvent(ctx, &SyncEvent{
		UserID:         42,
		SubscriptionID: 7,
		Result:         ResultSynced,
		ChangedFields:  []string{"status", "expire_at"},
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "sync_event", event.Type)
		assert.Equal(t, int64(42), event.UserID)
		assert.Equal(t, ResultSynced, event.Result)
		assert.Equal(t, []string{"status", "expire_at"}, event.ChangedFields)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync event")
	}
}

func TestPubSub_SubscribeStopsOnCancel(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	sub := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sub.Subscribe(ctx, func(*SyncEvent) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop after cancel")
	}
}
