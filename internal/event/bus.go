package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/sourcegraph/conc/panics"
)

// Handler is a function that handles an event. A returned error is logged
// by the bus and never reaches the publisher.
type Handler func(Event) error

// subscription represents a registered event handler.
type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// Bus is a simple synchronous pub-sub event bus.
// It allows components to communicate without direct dependencies.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	nextID        atomic.Uint64
	logger        *logging.Logger
}

// NewBus creates a new event bus. Listener failures are reported to logger;
// a nil logger discards them.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        logger,
	}
}

// Subscribe registers a handler for a specific event type.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.generateID()
	sub := subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
	}

	b.subscriptions[eventType] = append(b.subscriptions[eventType], sub)
	return id
}

// SubscribeAll registers a handler for all event types.
// The handler will be called for every published event.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[eventType] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers.
// Specific handlers (subscribed to this event type) are called first,
// followed by wildcard handlers (subscribed via SubscribeAll).
// Within each group, handlers are called in registration order.
// A handler that fails or panics is logged and the remaining handlers
// still run.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	eventType := event.EventType()

	// Get specific handlers for this event type
	specificSubs := make([]subscription, len(b.subscriptions[eventType]))
	copy(specificSubs, b.subscriptions[eventType])

	// Get wildcard handlers that listen to all events
	wildcardSubs := make([]subscription, len(b.subscriptions["*"]))
	copy(wildcardSubs, b.subscriptions["*"])

	b.mu.RUnlock()

	for _, sub := range specificSubs {
		b.safeCall(sub, event)
	}
	for _, sub := range wildcardSubs {
		b.safeCall(sub, event)
	}
}

// safeCall invokes a handler, converting errors and panics into log entries.
func (b *Bus) safeCall(sub subscription, event Event) {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = sub.handler(event) })

	if r := pc.Recovered(); r != nil {
		b.logger.Error("event listener panicked",
			"event", event.EventType(),
			"subscription", sub.id,
			"panic", fmt.Sprint(r.Value),
			"stack", string(r.Stack))
		return
	}
	if err != nil {
		b.logger.Warn("event listener failed",
			"event", event.EventType(),
			"subscription", sub.id,
			"error", err)
	}
}

// generateID creates a unique subscription ID.
func (b *Bus) generateID() string {
	return fmt.Sprintf("sub-%d", b.nextID.Add(1))
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
