package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type doc struct {
	ID     primitive.ObjectID `bson:"_id"`
	Name   string             `bson:"name"`
	Status string             `bson:"status"`
}

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
	signal  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan struct{}, 64)}
}

func (r *recorder) handle(ctx context.Context, batch []Change) error {
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return nil
}

func (r *recorder) changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Change
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestHubDeliversDecodedChanges(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())
	defer hub.Close()

	rec := newRecorder()
	_, err := hub.Subscribe("orders", "orders", rec.handle)
	require.NoError(t, err)

	d := doc{ID: primitive.NewObjectID(), Name: "first", Status: "low"}
	n, err := feed.Publish("orders", OpInsert, d)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rec.wait(t)

	got := rec.changes()
	require.Len(t, got, 1)
	assert.Equal(t, OpInsert, got[0].OperationType)
	assert.Equal(t, "orders", got[0].Namespace.Coll)
	assert.Equal(t, d.ID, got[0].DocumentKey.ID)

	var decoded doc
	require.NoError(t, got[0].DecodeDocument(&decoded))
	assert.Equal(t, d, decoded)
}

func TestChangeUpdatedFields(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())
	defer hub.Close()

	rec := newRecorder()
	_, err := hub.Subscribe("products", "products", rec.handle)
	require.NoError(t, err)

	_, err = feed.Publish("products", OpUpdate, doc{ID: primitive.NewObjectID(), Status: "low"}, "status")
	require.NoError(t, err)
	rec.wait(t)

	got := rec.changes()
	require.Len(t, got, 1)
	assert.True(t, got[0].Updated("status"))
	assert.False(t, got[0].Updated("name"))
}

func TestResubscribeClosesPreviousStream(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())
	defer hub.Close()

	first := newRecorder()
	sub1, err := hub.Subscribe("orders", "orders", first.handle)
	require.NoError(t, err)

	second := newRecorder()
	_, err = hub.Subscribe("orders", "orders", second.handle)
	require.NoError(t, err)

	select {
	case <-sub1.Done():
	default:
		t.Fatal("previous subscription still running")
	}
	assert.Equal(t, []string{"orders"}, hub.Active())

	n, err := feed.Publish("orders", OpInsert, doc{ID: primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the live stream should receive events")
	second.wait(t)
	assert.Empty(t, first.changes())
}

func TestHandlerErrorDoesNotStopStream(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())
	defer hub.Close()

	calls := make(chan struct{}, 4)
	_, err := hub.Subscribe("leads", "leads", func(ctx context.Context, batch []Change) error {
		calls <- struct{}{}
		return errors.New("boom")
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := feed.Publish("leads", OpInsert, doc{ID: primitive.NewObjectID()})
		require.NoError(t, err)
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("handler not called")
		}
	}
}

func TestCloseTearsDownAllSubscriptions(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())

	subA, err := hub.Subscribe("a", "orders", newRecorder().handle)
	require.NoError(t, err)
	subB, err := hub.Subscribe("b", "leads", newRecorder().handle)
	require.NoError(t, err)

	require.NoError(t, hub.Close())
	<-subA.Done()
	<-subB.Done()
	assert.Empty(t, hub.Active())

	_, err = hub.Subscribe("c", "orders", newRecorder().handle)
	assert.ErrorIs(t, err, ErrHubClosed)

	n, err := feed.Publish("orders", OpInsert, doc{ID: primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnsubscribe(t *testing.T) {
	feed := NewFeed()
	hub := NewHub(feed, zap.NewNop().Sugar())
	defer hub.Close()

	sub, err := hub.Subscribe("orders", "orders", newRecorder().handle)
	require.NoError(t, err)

	hub.Unsubscribe("orders")
	<-sub.Done()
	assert.Empty(t, hub.Active())
	hub.Unsubscribe("missing")
}
