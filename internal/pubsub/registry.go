package pubsub

import (
	"fmt"
	"strings"
	"sync"
)

// MetricsSource is anything that reports broker statistics.
type MetricsSource interface {
	Metrics() BrokerMetrics
}

// Registry keeps the brokers of a hub in registration order so the status
// report lists the invalidation bus before the notice bus.
type Registry struct {
	mu      sync.RWMutex
	sources []MetricsSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a broker to the report.
func (r *Registry) Register(source MetricsSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

// Snapshot returns the current metrics of every registered broker.
func (r *Registry) Snapshot() []BrokerMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]BrokerMetrics, len(r.sources))
	for i, source := range r.sources {
		out[i] = source.Metrics()
	}
	return out
}

// Report renders one line per broker.
func (r *Registry) Report() string {
	var sb strings.Builder
	for _, m := range r.Snapshot() {
		mode := "drop"
		if m.Lossless {
			mode = "lossless"
		}
		fmt.Fprintf(&sb, "%s (%s): %d published, %d dropped, %d subscribers (peak %d)",
			m.Name, mode, m.PublishCount, m.DropCount, m.SubscriberCount, m.SubscriberPeak)
		if m.Shutdown {
			sb.WriteString(", shut down")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
