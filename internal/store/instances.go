package store

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/aweris/repostore/internal/location"
	"github.com/aweris/repostore/internal/metrics"
)

// InstanceKey identifies a constructed store. Two keys are the same store
// when all fields are equal.
type InstanceKey struct {
	Kind     location.Kind
	Type     reflect.Type
	Name     string
	Owner    string
	ReadOnly bool
}

// InstanceCache memoizes constructed stores for the life of the process.
type InstanceCache struct {
	enabled bool
	metrics *metrics.Collector

	mu    sync.Mutex
	items map[InstanceKey]*instance
}

type instance struct {
	once  sync.Once
	value any
	err   error
}

// NewInstanceCache creates a cache. A disabled cache constructs a new store
// on every request.
func NewInstanceCache(enabled bool, m *metrics.Collector) *InstanceCache {
	return &InstanceCache{
		enabled: enabled,
		metrics: m,
		items:   make(map[InstanceKey]*instance),
	}
}

// GetOrCreate returns the instance for key, calling create at most once per
// key even under concurrent first access. A failed create is not cached.
func (c *InstanceCache) GetOrCreate(key InstanceKey, create func() (any, error)) (any, error) {
	if !c.enabled {
		return c.create(key, create)
	}

	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		e = &instance{}
		c.items[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() { e.value, e.err = c.create(key, create) })

	if e.err != nil {
		c.mu.Lock()
		if c.items[key] == e {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, e.err
	}
	return e.value, nil
}

// Len returns the number of memoized instances.
func (c *InstanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *InstanceCache) create(key InstanceKey, create func() (any, error)) (any, error) {
	v, err := create()
	if err != nil {
		return nil, err
	}
	c.metrics.InstanceCreated(key.Kind.String())
	return v, nil
}

// Instance is GetOrCreate for a concrete store type.
func Instance[S any](c *InstanceCache, key InstanceKey, create func() (S, error)) (S, error) {
	v, err := c.GetOrCreate(key, func() (any, error) { return create() })
	if err != nil {
		var zero S
		return zero, err
	}
	s, ok := v.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("store instance for %s:%s has type %T", key.Kind, key.Name, v)
	}
	return s, nil
}
