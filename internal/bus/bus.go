package bus

import (
	"context"
	"fmt"
	"sync"
)

// Topic identifies a bus channel carrying payloads of type T. Topic values are
// only declared in this package (see topics.go) so the set is closed.
type Topic[T any] struct {
	name string
}

func (t Topic[T]) String() string { return t.name }

// Handler receives one payload. Returning an error stops delivery of the
// current publish to later subscribers.
type Handler[T any] func(ctx context.Context, payload T) error

type erasedHandler func(ctx context.Context, payload any) error

// Bus is an in-process typed publish/subscribe registry.
//
// Delivery is synchronous and ordered: Publish calls each handler in the order
// it subscribed and returns once every handler has returned. Handlers that need
// to do slow work (network, disk) should start a goroutine and return; Publish
// does not wait for such work, so there is no ordering guarantee between the
// asynchronous effects of two publishes.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]erasedHandler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]erasedHandler)}
}

// Subscribe registers h for topic t. There is no duplicate detection and no
// way to unsubscribe.
func Subscribe[T any](b *Bus, t Topic[T], h Handler[T]) {
	wrapped := func(ctx context.Context, payload any) error {
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("topic %s: unexpected payload %T", t.name, payload)
		}
		return h(ctx, v)
	}
	b.mu.Lock()
	b.handlers[t.name] = append(b.handlers[t.name], wrapped)
	b.mu.Unlock()
}

// Publish delivers payload to every subscriber of t. Publishing to a topic
// without subscribers is a no-op. The first handler error aborts delivery to
// the remaining handlers and is returned wrapped with the topic name.
func Publish[T any](ctx context.Context, b *Bus, t Topic[T], payload T) error {
	b.mu.RLock()
	hs := b.handlers[t.name]
	// copy so subscriptions made by a handler don't see this publish
	snapshot := make([]erasedHandler, len(hs))
	copy(snapshot, hs)
	b.mu.RUnlock()

	publishedTotal.WithLabelValues(t.name).Inc()
	for _, h := range snapshot {
		if err := h(ctx, payload); err != nil {
			handlerErrorsTotal.WithLabelValues(t.name).Inc()
			return fmt.Errorf("publish %s: %w", t.name, err)
		}
	}
	return nil
}

// Subscribers reports how many handlers are registered for t.
func Subscribers[T any](b *Bus, t Topic[T]) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t.name])
}
