// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus implementation.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// SyncEventBus is a synchronous implementation of the FilteringEventBus interface.
// Events are delivered to handlers synchronously in the order they were subscribed:
// typed subscribers first, then wildcard subscribers.
//
// Thread-safety: This implementation is thread-safe. Multiple goroutines can
// publish events and subscribe/unsubscribe handlers concurrently. Handlers may
// themselves subscribe or unsubscribe; the change takes effect on the next Publish.
type SyncEventBus struct {
	logger *slog.Logger

	// typed holds subscriptions per event type, wildcard holds SubscribeAll handlers
	typed    map[domain.EventType][]subscription
	wildcard []subscription

	mu        sync.RWMutex
	idCounter uint64
	published uint64
	closed    bool
}

// subscription is a single registered handler with an optional filter.
type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
	filter  ports.EventFilter
}

func (s subscription) accepts(event domain.Event) bool {
	return s.filter == nil || s.filter(event)
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		typed:  make(map[domain.EventType][]subscription),
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for this event bus.
// This should be called after construction before using the event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if logger != nil {
		bus.logger = logger
	}
}

// Publish delivers an event to every matching subscriber.
// Publishing on a closed bus or publishing nil does nothing.
//
// Panics in handlers are recovered and logged, but do not stop other handlers
// from being called.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.typed[event.Type()])+len(bus.wildcard))
	targets = append(targets, bus.typed[event.Type()]...)
	targets = append(targets, bus.wildcard...)
	logger := bus.logger
	bus.mu.RUnlock()

	atomic.AddUint64(&bus.published, 1)
	logger.Debug("event published",
		slog.String("event_type", string(event.Type())),
		slog.Int("subscribers", len(targets)))

	for _, sub := range targets {
		if !sub.accepts(event) {
			continue
		}
		bus.deliver(logger, sub, event)
	}
}

// deliver calls one handler and recovers from panics.
func (bus *SyncEventBus) deliver(logger *slog.Logger, sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("subscription", string(sub.id)),
				slog.String("event_type", string(event.Type())))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
// Returns a unique subscription ID that can be used to unsubscribe.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.SubscribeFiltered(eventType, nil, handler)
}

// SubscribeFiltered registers a handler that only sees events accepted by filter.
// A nil filter accepts everything.
func (bus *SyncEventBus) SubscribeFiltered(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	sub := subscription{
		id:      bus.nextID("sub"),
		handler: handler,
		filter:  filter,
	}
	bus.typed[eventType] = append(bus.typed[eventType], sub)

	return sub.id
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	sub := subscription{
		id:      bus.nextID("sub-all"),
		handler: handler,
	}
	bus.wildcard = append(bus.wildcard, sub)

	return sub.id
}

// nextID must be called with mu held.
func (bus *SyncEventBus) nextID(prefix string) domain.SubscriptionID {
	bus.idCounter++
	return domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, bus.idCounter))
}

// Unsubscribe removes a previously registered event handler.
// Delivery order of the remaining subscribers is preserved.
// If the subscription ID is unknown, this is a no-op.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.typed {
		if idx := indexOf(subs, id); idx >= 0 {
			bus.typed[eventType] = remove(subs, idx)
			return
		}
	}

	if idx := indexOf(bus.wildcard, id); idx >= 0 {
		bus.wildcard = remove(bus.wildcard, idx)
	}
}

func indexOf(subs []subscription, id domain.SubscriptionID) int {
	for i, sub := range subs {
		if sub.id == id {
			return i
		}
	}
	return -1
}

// remove copies so that snapshots taken by an in-flight Publish stay intact.
func remove(subs []subscription, idx int) []subscription {
	out := make([]subscription, 0, len(subs)-1)
	out = append(out, subs[:idx]...)
	return append(out, subs[idx+1:]...)
}

// HasSubscribers returns true if there are any active subscriptions for the given event type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return len(bus.typed[eventType]) > 0 || len(bus.wildcard) > 0
}

// Close shuts down the event bus and clears all subscriptions.
//
// Returns an error if already closed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return fmt.Errorf("event bus already closed")
	}

	bus.closed = true
	bus.typed = make(map[domain.EventType][]subscription)
	bus.wildcard = nil

	return nil
}

// SubscriberCount returns the number of active subscriptions for debugging.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.wildcard)
	for _, subs := range bus.typed {
		count += len(subs)
	}
	return count
}

// PublishedCount returns how many events have been published since creation.
func (bus *SyncEventBus) PublishedCount() uint64 {
	return atomic.LoadUint64(&bus.published)
}

// Verify that SyncEventBus implements the FilteringEventBus interface
var _ ports.FilteringEventBus = (*SyncEventBus)(nil)
