// Package metrics exposes Prometheus counters for the store engine.
//
// A nil *Collector is valid and records nothing, so components can hold one
// unconditionally.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repostore"

// Cache request results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheEvict = "evict"
)

// Collector holds the registered metrics.
type Collector struct {
	cacheRequests *prometheus.CounterVec
	replaces      *prometheus.CounterVec
	instances     *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entry_cache",
			Name:      "requests_total",
			Help:      "Entry cache lookups by result.",
		}, []string{"result"}),
		replaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replace_total",
			Help:      "Atomic file replacements by outcome.",
		}, []string{"result"}),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_instances_total",
			Help:      "Store instances constructed by kind.",
		}, []string{"kind"}),
	}

	for _, col := range []prometheus.Collector{c.cacheRequests, c.replaces, c.instances} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) CacheRequest(result string) {
	if c == nil {
		return
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

func (c *Collector) Replace(outcome string) {
	if c == nil {
		return
	}
	c.replaces.WithLabelValues(outcome).Inc()
}

func (c *Collector) InstanceCreated(kind string) {
	if c == nil {
		return
	}
	c.instances.WithLabelValues(kind).Inc()
}
