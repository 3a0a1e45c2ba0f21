// Package events provides a minimal in-process publish/subscribe bus used to
// decouple modules. Publishing is fire-and-forget; handlers run on their own
// goroutines and must not assume ordering across event types.
package events

import "context"

// Event is the interface all domain events implement.
type Event interface {
	// Name returns the event type name, e.g. "batches.completed".
	Name() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, event Event)

// Bus publishes events to registered subscribers.
type Bus interface {
	// Publish delivers the event to all subscribers asynchronously.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for the named event type.
	Subscribe(name string, handler Handler)
}
