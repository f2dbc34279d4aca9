package store

import (
	"path/filepath"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/aweris/repostore/internal/metrics"
)

// EntryCache is the process wide read-through cache of decoded file
// contents, keyed by absolute path. Entries never expire; they are replaced
// on write and dropped on delete or when a reader expects a different type.
//
// Values are stored and returned as is, without copying.
type EntryCache struct {
	enabled bool
	metrics *metrics.Collector

	mu    sync.RWMutex
	items map[string]any

	// gens records the sequence number of the last write or removal per
	// key. A miss only caches what it read if the key's generation did not
	// move while the reader ran.
	seq     uint64
	cleared uint64
	gens    map[string]uint64

	// coalesces concurrent misses for the same path
	group singleflight.Group
}

// NewEntryCache creates a cache. A disabled cache stores nothing and sends
// every read to its reader.
func NewEntryCache(enabled bool, m *metrics.Collector) *EntryCache {
	return &EntryCache{
		enabled: enabled,
		metrics: m,
		items:   make(map[string]any),
		gens:    make(map[string]uint64),
	}
}

func (c *EntryCache) Enabled() bool { return c.enabled }

// Len returns the number of cached entries.
func (c *EntryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Remove evicts path regardless of the cached type.
func (c *EntryCache) Remove(path string) {
	if !c.enabled {
		return
	}
	key := absPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.bump(key)
}

// Clear evicts everything.
func (c *EntryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]any)
	c.gens = make(map[string]uint64)
	c.seq++
	c.cleared = c.seq
}

func (c *EntryCache) load(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// store caches v as the latest content of key.
func (c *EntryCache) store(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bump(key)
	if isNil(v) {
		delete(c.items, key)
		return
	}
	c.items[key] = v
}

// generation returns the current generation of key.
func (c *EntryCache) generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationLocked(key)
}

func (c *EntryCache) generationLocked(key string) uint64 {
	if g, ok := c.gens[key]; ok {
		return g
	}
	return c.cleared
}

// storeIfUnchanged caches v read at generation gen, unless key was written,
// removed or cleared since.
func (c *EntryCache) storeIfUnchanged(key string, v any, gen uint64) {
	if isNil(v) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generationLocked(key) != gen {
		return
	}
	c.items[key] = v
}

// bump must be called with mu held.
func (c *EntryCache) bump(key string) {
	c.seq++
	c.gens[key] = c.seq
}

func (c *EntryCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Reader loads a value on a cache miss. found is false when there is no
// value to load.
type Reader[T any] func() (v T, found bool, err error)

// TypedCache is a view of an EntryCache for values of type T.
type TypedCache[T any] struct {
	c *EntryCache
}

// Typed returns the view of c for T.
func Typed[T any](c *EntryCache) *TypedCache[T] {
	return &TypedCache[T]{c: c}
}

// absent marks a shared miss whose reader found nothing.
type absent struct{}

// flight is the shared result of one coalesced miss.
type flight struct {
	value any
	gen   uint64
}

// Get returns the cached value for path, or calls read and caches its result.
// A cached value that is not a T is evicted and read again.
func (t *TypedCache[T]) Get(path string, read Reader[T]) (T, bool, error) {
	if !t.c.enabled {
		return read()
	}

	key := absPath(path)
	if v, ok := t.c.load(key); ok {
		if tv, ok := v.(T); ok {
			t.c.metrics.CacheRequest(metrics.CacheHit)
			return tv, true, nil
		}
		t.c.evict(key)
		t.c.metrics.CacheRequest(metrics.CacheEvict)
	}
	t.c.metrics.CacheRequest(metrics.CacheMiss)

	gen := t.c.generation(key)
	res, err, _ := t.c.group.Do(key, func() (any, error) {
		flightGen := t.c.generation(key)
		v, found, err := read()
		if err != nil {
			return nil, err
		}
		if !found || isNil(v) {
			return flight{value: absent{}, gen: flightGen}, nil
		}
		t.c.storeIfUnchanged(key, v, flightGen)
		return flight{value: v, gen: flightGen}, nil
	})

	var zero T
	if err != nil {
		return zero, false, err
	}
	f := res.(flight)
	if f.gen != gen {
		// joined a flight that started before the latest write
		return read()
	}
	if _, ok := f.value.(absent); ok {
		return zero, false, nil
	}
	if tv, ok := f.value.(T); ok {
		return tv, true, nil
	}
	// joined a flight started by a reader of another type
	return read()
}

// Put records v as the committed content of path. A nil v evicts the entry.
// Reads that started before Put never overwrite v.
func (t *TypedCache[T]) Put(path string, v T) {
	if !t.c.enabled {
		return
	}
	t.c.store(absPath(path), v)
}

// Remove evicts path.
func (t *TypedCache[T]) Remove(path string) {
	t.c.Remove(path)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
