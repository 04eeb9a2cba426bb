package outbox

import (
	"context"
	"time"
)

// Event is a domain event. EventKey names the aggregate it belongs to and is
// used for partitioning by relays.
type Event interface {
	EventName() string
	EventKey() string
	EventTime() time.Time
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
	// SubscribeAll registers h for every event regardless of name.
	SubscribeAll(h Handler)
}
