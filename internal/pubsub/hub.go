package pubsub

import (
	"sync"

	"github.com/guilhermegouw/chatkeeper/internal/events"
)

// Broker names registered by NewHub.
const (
	SessionBrokerName = "session"
	NoticeBrokerName  = "notice"
)

// Hub is the session-management context: it owns the invalidation bus and
// the notice (toast) bus and is injected into every controller.
type Hub struct { //nolint:govet // fieldalignment: preserving logical field order
	// Session carries invalidation signals. It is lossless: a dropped
	// invalidation would leave a view stale until the next unrelated one.
	Session *Broker[events.SessionEvent]
	// Notice carries user-visible notifications; slow readers lose them.
	Notice *Broker[events.NoticeEvent]

	registry *Registry
	once     sync.Once
}

// NewHub creates a new Hub with all brokers initialized.
func NewHub() *Hub {
	h := &Hub{
		Session:  NewBroker(SessionBrokerName, WithDropPolicy[events.SessionEvent](false)),
		Notice:   NewBroker[events.NoticeEvent](NoticeBrokerName),
		registry: NewRegistry(),
	}

	h.registry.Register(h.Session)
	h.registry.Register(h.Notice)

	return h
}

// Shutdown gracefully shuts down all brokers.
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); h.Session.Shutdown() }()
		go func() { defer wg.Done(); h.Notice.Shutdown() }()
		wg.Wait()
	})
}

// Metrics returns the statistics of every broker, invalidation bus first.
func (h *Hub) Metrics() []BrokerMetrics {
	return h.registry.Snapshot()
}

// Report returns one status line per broker.
func (h *Hub) Report() string {
	return h.registry.Report()
}
