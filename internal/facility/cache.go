package facility

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
)

// DirectoryLoader loads the facilities in a directory.
type DirectoryLoader interface {
	Load(ctx context.Context, dir string) (LoadResult, error)
}

// CachedLoader wraps a DirectoryLoader with an in-memory LRU cache. Entries are
// keyed by the directory path and a fingerprint of its CSV files, so adding,
// removing, or rewriting a file forces a reload. Cached collections are shared
// between callers and must not be modified.
type CachedLoader struct {
	inner   DirectoryLoader
	cache   *lruCache[LoadResult]
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a loader.
func NewCachedLoader(inner DirectoryLoader, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache[LoadResult](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLoader) Load(ctx context.Context, dir string) (LoadResult, error) {
	fp, err := fingerprint(dir)
	if err != nil {
		// Let the inner loader produce the canonical error for a missing directory.
		return c.inner.Load(ctx, dir)
	}

	key := dir + "|" + fp
	if result, ok := c.cache.get(key); ok {
		c.metrics.FacilityCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.FacilityCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Load(ctx, dir)
	if err != nil {
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

// fingerprint hashes the name, size, and modification time of every CSV file in dir.
func fingerprint(dir string) (string, error) {
	names, err := listCSVFiles(dir)
	if err != nil {
		return "", err
	}

	h := fnv.New64a()
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s:%d:%d;", name, info.Size(), info.ModTime().UnixNano())
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
