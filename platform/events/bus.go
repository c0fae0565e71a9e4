package events

import (
	"context"
	"sync"
	"time"

	"agencydesk_backend/platform/logger"
)

// InMemoryBus is a simple in-process event bus. Handlers registered for
// an event name receive every published event with that name. Publish is
// fire-and-forget; PublishSync blocks and surfaces the first error.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all subscribers in a new goroutine.
// The delivery context is detached from the caller so in-flight handlers
// survive the originating request.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		deliveryCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, h := range handlers {
			if err := h.Handle(deliveryCtx, event); err != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err)
			}
		}
	}()
}

// PublishSync delivers the event in the calling goroutine. All handlers
// run; the first error encountered is returned.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.log.Error("event handler failed",
				"event", event.EventName(),
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Wait blocks until all asynchronous deliveries have finished. Used
// during shutdown and in tests.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
