package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDeliversToSubscribers(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	var got [][]byte
	require.NoError(t, b.Subscribe(ctx, QueueNotifications, func(ctx context.Context, msg []byte) error {
		got = append(got, msg)
		return nil
	}))
	require.NoError(t, b.Subscribe(ctx, QueueNotifications, func(ctx context.Context, msg []byte) error {
		return errors.New("fails")
	}))

	require.NoError(t, b.Publish(ctx, QueueNotifications, []byte(`{"a":1}`)))
	require.NoError(t, b.Publish(ctx, "other", []byte(`{"b":2}`)))

	require.Len(t, got, 1)
	assert.JSONEq(t, `{"a":1}`, string(got[0]))
}

func TestMemoryBrokerSkipsCancelledSubscribers(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	require.NoError(t, b.Subscribe(ctx, QueueNotifications, func(ctx context.Context, msg []byte) error {
		calls++
		return nil
	}))
	cancel()

	require.NoError(t, b.Publish(context.Background(), QueueNotifications, []byte("x")))
	assert.Zero(t, calls)
}
