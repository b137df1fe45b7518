package queue

import (
	"context"
	"sync"
)

type Broker interface {
	Publish(ctx context.Context, queueName string, message []byte) error
	Subscribe(ctx context.Context, queueName string, handler MessageHandler) error
	Close() error
}

type MessageHandler func(ctx context.Context, message []byte) error

const (
	QueueNotifications = "crm.notifications"
)

// NoopBroker drops everything. It stands in when no broker URL is configured.
type NoopBroker struct{}

func (NoopBroker) Publish(ctx context.Context, queueName string, message []byte) error { return nil }

func (NoopBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	return nil
}

func (NoopBroker) Close() error { return nil }

// MemoryBroker delivers messages synchronously to in-process subscribers.
type MemoryBroker struct {
	mu       sync.RWMutex
	handlers map[string][]subscriber
}

type subscriber struct {
	ctx     context.Context
	handler MessageHandler
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{handlers: make(map[string][]subscriber)}
}

func (b *MemoryBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.handlers[queueName]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		// no retry: a failing handler loses the message, like the AMQP broker
		_ = s.handler(s.ctx, append([]byte(nil), message...))
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[queueName] = append(b.handlers[queueName], subscriber{ctx: ctx, handler: handler})
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]subscriber)
	return nil
}
