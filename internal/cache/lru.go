package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCapacity = 10000
	DefaultTTL      = 30 * time.Minute
)

// Cache is a string-keyed store with the four operations the decision
// service relies on
type Cache[V any] interface {
	Lookup(key string) (V, bool)
	Save(key string, value V)
	Remove(key string)
	Reset()
}

// LRU is a capacity-bounded cache whose entries also expire after a TTL
type LRU[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewLRU creates a new LRU cache. A capacity <= 0 uses DefaultCapacity and a
// ttl <= 0 disables expiry.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{lru: expirable.NewLRU[string, V](capacity, nil, ttl)}
}

func (c *LRU[V]) Lookup(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *LRU[V]) Save(key string, value V) {
	c.lru.Add(key, value)
}

func (c *LRU[V]) Remove(key string) {
	c.lru.Remove(key)
}

func (c *LRU[V]) Reset() {
	c.lru.Purge()
}

// Len returns the number of live entries
func (c *LRU[V]) Len() int {
	return c.lru.Len()
}
