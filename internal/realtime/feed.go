package realtime

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

const feedBuffer = 256

// Feed is an in-process Watcher. Writers call Publish and every open stream on
// that collection receives the event. It backs memory mode and tests.
type Feed struct {
	mu      sync.Mutex
	streams map[string]map[*feedStream]struct{}
}

func NewFeed() *Feed {
	return &Feed{streams: make(map[string]map[*feedStream]struct{})}
}

var _ Watcher = (*Feed)(nil)

func (f *Feed) Watch(ctx context.Context, collection string) (Stream, error) {
	s := &feedStream{
		feed:       f,
		collection: collection,
		ch:         make(chan bson.Raw, feedBuffer),
		closed:     make(chan struct{}),
	}
	f.mu.Lock()
	if f.streams[collection] == nil {
		f.streams[collection] = make(map[*feedStream]struct{})
	}
	f.streams[collection][s] = struct{}{}
	f.mu.Unlock()
	return s, nil
}

// Publish emits a change event shaped like a MongoDB change-stream document.
// It never blocks: streams whose buffer is full miss the event. It returns the
// number of streams that received it.
func (f *Feed) Publish(collection, op string, doc interface{}, updatedFields ...string) (int, error) {
	full, err := bson.Marshal(doc)
	if err != nil {
		return 0, err
	}
	event := bson.M{
		"operationType": op,
		"ns":            bson.M{"db": "memory", "coll": collection},
		"fullDocument":  bson.Raw(full),
	}
	if id, err := bson.Raw(full).LookupErr("_id"); err == nil {
		event["documentKey"] = bson.M{"_id": id}
	}
	if op == OpUpdate {
		fields := bson.M{}
		for _, name := range updatedFields {
			if v, err := bson.Raw(full).LookupErr(name); err == nil {
				fields[name] = v
			}
		}
		event["updateDescription"] = bson.M{"updatedFields": fields}
	}
	raw, err := bson.Marshal(event)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	targets := make([]*feedStream, 0, len(f.streams[collection]))
	for s := range f.streams[collection] {
		targets = append(targets, s)
	}
	f.mu.Unlock()

	delivered := 0
	for _, s := range targets {
		select {
		case s.ch <- raw:
			delivered++
		case <-s.closed:
		default:
		}
	}
	return delivered, nil
}

func (f *Feed) remove(s *feedStream) {
	f.mu.Lock()
	delete(f.streams[s.collection], s)
	f.mu.Unlock()
}

type feedStream struct {
	feed       *Feed
	collection string
	ch         chan bson.Raw
	closed     chan struct{}
	once       sync.Once
	current    bson.Raw
	err        error
}

func (s *feedStream) Next(ctx context.Context) bool {
	select {
	case raw := <-s.ch:
		s.current = raw
		return true
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	case <-s.closed:
		return false
	}
}

func (s *feedStream) TryNext(ctx context.Context) bool {
	select {
	case raw := <-s.ch:
		s.current = raw
		return true
	default:
		return false
	}
}

func (s *feedStream) Decode(v interface{}) error {
	return bson.Unmarshal(s.current, v)
}

func (s *feedStream) Err() error { return s.err }

func (s *feedStream) Close(ctx context.Context) error {
	s.once.Do(func() {
		close(s.closed)
		s.feed.remove(s)
	})
	return nil
}
