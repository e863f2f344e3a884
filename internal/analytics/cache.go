package analytics

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	userID int64
	asOf   string
	kind   string
}

// Cache is a read-through cache of derived values keyed by user and the day
// they were computed for. Any write to a user's log must call
// InvalidateUser.
//
// Each user has a generation that InvalidateUser bumps. A value is only
// stored if the user's generation is unchanged since the caller captured it
// before reading the log, so a computation that raced a write is dropped.
type Cache struct {
	lru *lru.Cache[cacheKey, any]

	mu  sync.Mutex
	gen map[int64]uint64
}

// NewCache returns a cache holding up to size entries. A size of zero or
// less returns nil, which disables caching.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[cacheKey, any](size)
	if err != nil {
		return nil, fmt.Errorf("new lru: %w", err)
	}
	return &Cache{lru: c, gen: make(map[int64]uint64)}, nil
}

func (c *Cache) generation(userID int64) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[userID]
}

func (c *Cache) get(k cacheKey) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(k)
}

// add stores v unless k's user was invalidated after gen was captured.
func (c *Cache) add(k cacheKey, v any, gen uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[k.userID] != gen {
		return
	}
	c.lru.Add(k, v)
}

// InvalidateUser drops every entry computed for userID and discards any
// computation for userID still in flight.
func (c *Cache) InvalidateUser(userID int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[userID]++
	for _, k := range c.lru.Keys() {
		if k.userID == userID {
			c.lru.Remove(k)
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
