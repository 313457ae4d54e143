// Package hotcache is an advisory, LRU-evicted cache of recent query
// results sitting in front of a search.Client. A miss, or a query form the
// cache was never asked about, always falls through to the client; the
// cache never becomes a second source of truth.
package hotcache

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Form identifies which query operation produced a cached result set, so
// the same query string cached under different forms (or different edit
// budgets) doesn't collide.
type Form int

const (
	FormExact Form = iota
	FormPrefix
	FormPredict
	FormApprox
	FormApproxPredict
)

// Key identifies one cached result set.
type Key struct {
	Query    string
	MaxEdits int
	Form     Form
}

// Cache holds up to maxEntries most-recently-used result sets of type R,
// evicting the least-recently-used entry exactly as suggest.HotCache did,
// and indexing cached queries in a patricia.Trie so a caller rebuilding the
// underlying index can invalidate every cached query under a subtree
// without scanning the whole cache.
type Cache[R any] struct {
	mu         sync.RWMutex
	entries    map[Key]R
	accessTime map[Key]int64
	accessSeq  int64
	index      *patricia.Trie
	maxEntries int
}

// New creates a cache holding up to maxEntries result sets.
func New[R any](maxEntries int) *Cache[R] {
	return &Cache[R]{
		entries:    make(map[Key]R, maxEntries),
		accessTime: make(map[Key]int64, maxEntries),
		index:      patricia.NewTrie(),
		maxEntries: maxEntries,
	}
}

// Get returns the cached result for key, if present, and marks it
// recently used.
func (c *Cache[R]) Get(key Key) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[key]
	if !ok {
		var zero R
		return zero, false
	}
	c.markAccessed(key)
	return result, true
}

// Put stores result under key, evicting the least-recently-used entry
// first if the cache is full.
func (c *Cache[R]) Put(key Key, result R) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.entries[key] = result
	c.markAccessed(key)

	prefix := patricia.Prefix(key.Query)
	item := c.index.Get(prefix)
	keys, _ := item.(map[Key]struct{})
	if keys == nil {
		keys = make(map[Key]struct{})
	}
	keys[key] = struct{}{}
	if item == nil {
		c.index.Insert(prefix, keys)
	} else {
		c.index.Set(prefix, keys)
	}
}

// InvalidateSubtree drops every cached entry whose query is prefix or has
// prefix as a prefix, for use when the underlying index is rebuilt and any
// cached answer for that part of the keyspace may now be stale.
func (c *Cache[R]) InvalidateSubtree(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var queries []patricia.Prefix
	err := c.index.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		queries = append(queries, append(patricia.Prefix(nil), p...))
		return nil
	})
	if err != nil {
		log.Errorf("hotcache: error walking invalidation subtree %q: %v", prefix, err)
	}

	for _, q := range queries {
		item := c.index.Get(q)
		keys, _ := item.(map[Key]struct{})
		for key := range keys {
			delete(c.entries, key)
			delete(c.accessTime, key)
		}
		c.index.Delete(q)
	}
}

// Stats reports current occupancy.
func (c *Cache[R]) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]int{
		"entries":    len(c.entries),
		"maxEntries": c.maxEntries,
	}
}

func (c *Cache[R]) markAccessed(key Key) {
	c.accessSeq++
	c.accessTime[key] = c.accessSeq
}

func (c *Cache[R]) evictLRU() {
	var oldestKey Key
	var oldestTime int64 = 1<<63 - 1
	found := false

	for key, t := range c.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestKey = key
			found = true
		}
	}
	if !found {
		return
	}

	delete(c.entries, oldestKey)
	delete(c.accessTime, oldestKey)

	prefix := patricia.Prefix(oldestKey.Query)
	if item := c.index.Get(prefix); item != nil {
		keys, _ := item.(map[Key]struct{})
		delete(keys, oldestKey)
		if len(keys) == 0 {
			c.index.Delete(prefix)
		} else {
			c.index.Set(prefix, keys)
		}
	}

	log.Debugf("hotcache: evicted %+v", oldestKey)
}
