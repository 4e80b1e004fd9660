// Package ports define the EventBus interface for event-driven communication.
package ports

import (
	"github.com/flightmansam/feishin/internal/domain"
)

// EventBus is the application event channel.
// Services publish status and command events on it; the UI, the shell
// integration and the remote bridge subscribe without knowing the publishers.
//
// Thread-safety: Implementations must be thread-safe as events may be published and
// subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventCurrentSongChanged, func(event domain.Event) {
//	    e := event.(domain.CurrentSongChangedEvent)
//	    view.RefreshRows([]int{e.PreviousIndex, e.CurrentIndex})
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to every subscriber of its type, then to
	// every SubscribeAll handler, in subscription order.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Each subscription gets a unique SubscriptionID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions for the given event type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and drops every subscription.
	Close() error
}
