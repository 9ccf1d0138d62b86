package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"go.uber.org/zap"
)

type subscription struct {
	id      uint64
	handler ports.EventHandler
}

// EventBus implements ports.EventBus in process. Handlers run
// synchronously on the publishing goroutine, in subscription order, so
// delivery order matches publish order.
type EventBus struct {
	subscribers map[string][]subscription
	nextID      uint64
	closed      chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new in-memory event bus. logger may be nil.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		subscribers: make(map[string][]subscription),
		closed:      make(chan struct{}),
		logger:      logger,
	}
}

// Publish delivers an event to all subscribers of a topic. A handler error
// does not stop delivery to the remaining subscribers; the errors are
// joined and returned to the publisher, since there is no redelivery.
func (e *EventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	subs := make([]subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			e.logger.Warn("event handler failed",
				zap.String("topic", topic),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// HasSubscribers reports whether anything currently listens on topic.
// Events published to a topic without subscribers are dropped.
func (e *EventBus) HasSubscribers(topic string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic]) > 0
}

// Subscribe registers handler for topic until ctx is cancelled or the bus
// is closed.
func (e *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subscribers[topic] = append(e.subscribers[topic], subscription{id: id, handler: handler})
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			e.unsubscribe(topic, id)
		case <-e.closed:
		}
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *EventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers, topic)
	return nil
}

// Close removes every subscription
func (e *EventBus) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string][]subscription)
	return nil
}

// unsubscribe removes one subscription from a topic
func (e *EventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, sub := range subs {
		if sub.id == id {
			e.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}
