package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the default channel buffer for subscribers.
const DefaultBufferSize = 64

// BrokerOption configures a Broker.
type BrokerOption[T any] func(*Broker[T])

// WithBufferSize sets the subscriber channel buffer size.
func WithBufferSize[T any](size int) BrokerOption[T] {
	return func(b *Broker[T]) {
		b.bufferSize = size
	}
}

// WithDropPolicy sets whether to drop events when a subscriber is full.
// A lossless broker blocks Publish until every live subscriber has room.
func WithDropPolicy[T any](drop bool) BrokerOption[T] {
	return func(b *Broker[T]) {
		b.dropOnFull = drop
	}
}

type subscription[T any] struct {
	ch   chan Event[T]
	done chan struct{}
}

// Broker is a type-safe, write-many/read-many pub/sub broker.
// Subscriptions live until their context is cancelled or the broker shuts
// down.
type Broker[T any] struct { //nolint:govet // fieldalignment: preserving logical field order
	name       string
	subs       map[*subscription[T]]struct{}
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
	dropOnFull bool

	// publishMu serialises publishers so Seq order equals delivery order.
	publishMu    sync.Mutex
	seq          uint64
	shutdownOnce sync.Once

	publishCount   atomic.Int64
	dropCount      atomic.Int64
	subscriberPeak atomic.Int32
	subscriberCurr atomic.Int32
}

// NewBroker creates a new typed broker with optional configuration.
func NewBroker[T any](name string, opts ...BrokerOption[T]) *Broker[T] {
	b := &Broker[T]{
		name:       name,
		subs:       make(map[*subscription[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: DefaultBufferSize,
		dropOnFull: true,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Name returns the broker's name for debugging.
func (b *Broker[T]) Name() string {
	return b.name
}

// Subscribe registers a subscriber. The returned channel is closed when ctx
// is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.IsShutdown() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := &subscription[T]{
		ch:   make(chan Event[T], b.bufferSize),
		done: make(chan struct{}),
	}
	b.subs[sub] = struct{}{}

	curr := b.subscriberCurr.Add(1)
	for {
		peak := b.subscriberPeak.Load()
		if curr <= peak || b.subscriberPeak.CompareAndSwap(peak, curr) {
			break
		}
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		// Wake any publisher blocked on this subscriber before taking the
		// write lock, otherwise a lossless Publish would hold the read lock
		// forever.
		close(sub.done)
		b.remove(sub)
	}()

	return sub.ch
}

func (b *Broker[T]) remove(sub *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
	b.subscriberCurr.Add(-1)
}

// Publish delivers payload to every current subscriber. Channels are only
// closed under the write lock, so sending under the read lock is safe.
func (b *Broker[T]) Publish(payload T) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.IsShutdown() {
		return
	}

	b.seq++
	event := Event[T]{
		Payload:   payload,
		Seq:       b.seq,
		Timestamp: time.Now(),
	}
	b.publishCount.Add(1)

	for sub := range b.subs {
		if b.dropOnFull {
			select {
			case sub.ch <- event:
			default:
				b.dropCount.Add(1)
			}
			continue
		}

		select {
		case sub.ch <- event:
		case <-sub.done:
			b.dropCount.Add(1)
		case <-b.done:
			return
		}
	}
}

// Shutdown closes every subscriber channel. Later publishes are no-ops.
func (b *Broker[T]) Shutdown() {
	// done is closed before taking the write lock: a lossless publisher may
	// hold the read lock and only returns once it observes b.done.
	b.shutdownOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
	b.subscriberCurr.Store(0)
}

// IsShutdown returns true if the broker has been shut down.
func (b *Broker[T]) IsShutdown() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker[T]) SubscriberCount() int {
	return int(b.subscriberCurr.Load())
}

// Metrics returns the broker's metrics for debugging.
func (b *Broker[T]) Metrics() BrokerMetrics {
	return BrokerMetrics{
		Name:            b.name,
		PublishCount:    b.publishCount.Load(),
		DropCount:       b.dropCount.Load(),
		SubscriberCount: int(b.subscriberCurr.Load()),
		SubscriberPeak:  int(b.subscriberPeak.Load()),
		Lossless:        !b.dropOnFull,
		Shutdown:        b.IsShutdown(),
	}
}

// BrokerMetrics contains broker statistics for debugging.
type BrokerMetrics struct {
	Name            string
	PublishCount    int64
	DropCount       int64
	SubscriberCount int
	SubscriberPeak  int
	// Lossless brokers block publishers instead of dropping events.
	Lossless bool
	Shutdown bool
}
