// Package realtime owns the change-stream subscriptions that feed dashboard
// notifications. Every subscription is an explicit handle: closing it cancels
// the stream and waits for its goroutine to exit.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxBatch bounds how many queued changes are handed to a handler at once.
const MaxBatch = 100

var ErrHubClosed = errors.New("realtime hub closed")

type Subscription struct {
	name       string
	collection string
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

func (s *Subscription) Name() string { return s.name }

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the stream and blocks until the handler goroutine returns.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

type Hub struct {
	watcher Watcher
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewHub(watcher Watcher, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		watcher: watcher,
		logger:  logger,
		subs:    make(map[string]*Subscription),
	}
}

// Subscribe opens a stream on collection and delivers batches to handler until
// the subscription is closed. An existing subscription with the same name is
// closed first, so re-subscribing never leaks the previous stream.
func (h *Hub) Subscribe(name, collection string, handler Handler) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	prev := h.subs[name]
	delete(h.subs, name)
	h.mu.Unlock()

	if prev != nil {
		prev.Close()
		h.logger.Infow("realtime subscription replaced", "name", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := h.watcher.Watch(ctx, collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	sub := &Subscription{
		name:       name,
		collection: collection,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go h.run(ctx, sub, stream, handler)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.Close()
		return nil, ErrHubClosed
	}
	raced := h.subs[name]
	h.subs[name] = sub
	h.mu.Unlock()
	if raced != nil {
		raced.Close()
	}

	h.logger.Infow("realtime subscription started", "name", name, "collection", collection)
	return sub, nil
}

func (h *Hub) run(ctx context.Context, sub *Subscription, stream Stream, handler Handler) {
	defer close(sub.done)
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			h.logger.Warnw("closing change stream failed", "name", sub.name, "error", err)
		}
	}()

	for stream.Next(ctx) {
		batch := make([]Change, 0, 1)
		batch = h.appendDecoded(batch, sub, stream)
		for len(batch) < MaxBatch && stream.TryNext(ctx) {
			batch = h.appendDecoded(batch, sub, stream)
		}
		if len(batch) == 0 {
			continue
		}
		if err := handler(ctx, batch); err != nil {
			h.logger.Errorw("realtime handler failed", "name", sub.name, "changes", len(batch), "error", err)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		h.logger.Errorw("change stream stopped", "name", sub.name, "collection", sub.collection, "error", err)
	}
}

func (h *Hub) appendDecoded(batch []Change, sub *Subscription, stream Stream) []Change {
	var ch Change
	if err := stream.Decode(&ch); err != nil {
		h.logger.Warnw("skipping undecodable change", "name", sub.name, "error", err)
		return batch
	}
	return append(batch, ch)
}

// Unsubscribe closes the named subscription if it exists.
func (h *Hub) Unsubscribe(name string) {
	h.mu.Lock()
	sub := h.subs[name]
	delete(h.subs, name)
	h.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Active lists the names of live subscriptions.
func (h *Hub) Active() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.subs))
	for name := range h.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close tears down every subscription and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()

	var g errgroup.Group
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			sub.Close()
			return nil
		})
	}
	return g.Wait()
}
