package ports

import (
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// EventBus carries domain events from the services to whoever renders them:
// the websocket hub, the log, and tests.
//
// Publishers never know their subscribers. Implementations must be safe for
// concurrent Publish and Subscribe calls.
//
//	sub := bus.Subscribe(domain.EventLyricLineChanged, func(e domain.Event) {
//	    line := e.(domain.LyricLineChangedEvent)
//	    render(line.Index, line.Text)
//	})
//	defer bus.Unsubscribe(sub)
type EventBus interface {
	// Publish delivers event to every matching subscriber.
	// Handlers run on the publisher's goroutine and must return quickly.
	Publish(event domain.Event)

	// Subscribe registers handler for one event type.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers handler for every event type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anyone listens for eventType.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops all subscriptions. Publishing after Close is a no-op and
	// closing twice returns an error.
	Close() error
}

// EventFilter decides whether a subscriber sees an event.
type EventFilter func(event domain.Event) bool

// FilteringEventBus adds predicate subscriptions.
type FilteringEventBus interface {
	EventBus

	// SubscribeFiltered registers handler for events of eventType accepted by filter.
	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID
}
