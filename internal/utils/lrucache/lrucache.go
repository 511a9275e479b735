// Package lrucache is a typed facade over hashicorp's LRU cache, with a
// read-through helper for store lookups.
package lrucache

import lru "github.com/hashicorp/golang-lru"

// Cache is a fixed size, thread safe LRU cache.
type Cache[K comparable, V any] struct {
	lru *lru.Cache
}

// NewCache returns a cache holding at most size entries. A non positive size
// falls back to a single entry.
func NewCache[K comparable, V any](size int) *Cache[K, V] {
	if size <= 0 {
		size = 1
	}
	inner, _ := lru.New(size)
	return &Cache[K, V]{lru: inner}
}

// Get returns the cached value of key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	raw, found := c.lru.Get(key)
	if !found {
		return value, false
	}
	return raw.(V), true
}

// GetOrLoad returns the cached value of key, or calls load on a miss and
// caches what it found. Nothing is cached when load reports a miss.
func (c *Cache[K, V]) GetOrLoad(key K, load func(K) (V, bool)) (V, bool) {
	if value, ok := c.Get(key); ok {
		return value, true
	}
	value, ok := load(key)
	if ok {
		c.lru.Add(key, value)
	}
	return value, ok
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Remove evicts the key, if present.
func (c *Cache[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

// Contains checks if a key is in the cache, without updating the
// recent-ness or deleting it for being stale.
func (c *Cache[K, V]) Contains(key K) bool {
	return c.lru.Contains(key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}
