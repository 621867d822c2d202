package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// HandlerFunc consumes one event. A returned error leaves the event unpublished.
type HandlerFunc func(ctx context.Context, event Event) error

type subscription struct {
	name    string
	handler HandlerFunc
}

// Bus is a synchronous in-process event bus. Subscribers of an event type run in registration order.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subscriptions: make(map[string][]subscription)}
}

// Subscribe registers handler for eventType under a name used in error messages.
func (b *Bus) Subscribe(eventType, name string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{name: name, handler: handler})
}

// Publish delivers event to every subscriber of its type.
// All subscribers run even if one fails; their errors are joined under ErrHandlerFailed.
// An event type without subscribers is delivered trivially.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscriptions[event.EventType]...)
	b.mu.RUnlock()

	var errs []error

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sub.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrHandlerFailed}, errs...)...)
	}

	return nil
}
