// Package events provides a lightweight in-process event bus for
// decoupled communication between modules.
package events

import (
	"context"
	"time"
)

// Event is the interface all domain events must satisfy.
type Event interface {
	// EventName returns the unique name of the event, e.g. "deals.stage_changed".
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// Handler processes a published event. Returning an error does not stop
// delivery to other handlers; the bus logs and continues.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is the publish/subscribe contract modules depend on.
type Bus interface {
	// Publish delivers the event to subscribers asynchronously.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers the event to subscribers in the calling
	// goroutine and returns the first handler error, if any.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers a handler for the named event.
	Subscribe(eventName string, handler Handler)
}

// BaseEvent provides the OccurredAt implementation for event structs.
type BaseEvent struct {
	Timestamp time.Time
}

// NewBaseEvent creates a BaseEvent stamped with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// OccurredAt returns the event timestamp.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}
