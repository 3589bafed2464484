// Package pubsub provides the typed brokers the session hub is built from.
package pubsub

import (
	"context"
	"time"
)

// Event wraps a published payload with delivery metadata.
type Event[T any] struct {
	Payload T
	// Seq increases by one per Publish on a broker; subscribers observe
	// events in Seq order.
	Seq       uint64
	Timestamp time.Time
}

// Publisher is the interface for publishing events.
type Publisher[T any] interface {
	Publish(T)
}

// Subscriber is the interface for subscribing to events.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}

// PubSub combines Publisher and Subscriber interfaces.
type PubSub[T any] interface {
	Publisher[T]
	Subscriber[T]
}
