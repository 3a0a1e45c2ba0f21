package events

import (
	"context"
	"sync"

	"outreach_backend/platform/logger"
)

// InMemoryBus is a process-local Bus implementation.
// Suitable for a single-instance deployment; handlers are invoked per event in
// registration order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates an empty in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the named event type.
func (b *InMemoryBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish delivers the event to all subscribers asynchronously.
// Handlers run on a context detached from the caller's cancellation: the
// publisher is typically an HTTP request or a task whose context dies the
// moment it returns, and subscribers (such as the SMTP sender) must be able
// to finish their work after that. Context values still flow through.
// Handler panics are recovered and logged so one subscriber cannot take down
// the publisher.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, handler := range b.subscribers(event.Name()) {
		go b.dispatch(detached, event, handler)
	}
}

func (b *InMemoryBus) subscribers(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	return handlers
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("event_handler_panic", "event", event.Name(), "panic", r)
		}
	}()
	handler(ctx, event)
}
