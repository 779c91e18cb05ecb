// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package cache wraps hashicorp/golang-lru's generic Cache with the
// negative-caching semantics the lookup path needs: a cache entry can
// legitimately store "no value" so that a repeated miss doesn't repeat the
// work that produced it.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity, access-ordered cache. Eviction fires on Add
// when the insert would otherwise bring the cache above capacity, so
// capacity is the post-insert bound: the cache never holds more than
// capacity entries. This is the opposite of a size()>=capacity-before-insert
// predicate, which would leave effective capacity one lower.
type Cache[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

// New builds a Cache holding at most capacity entries. capacity must be
// positive.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	inner, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{inner: inner}, nil
}

// Get returns the cached value for key and whether it was present. A
// present entry with a zero value (e.g. a nil pointer, for negative
// caching) is a hit: found is true, val is whatever was stored.
func (c *Cache[K, V]) Get(key K) (val V, found bool) {
	return c.inner.Get(key)
}

// Put stores val under key, evicting the least-recently-used entry first
// if the cache is already at capacity.
func (c *Cache[K, V]) Put(key K, val V) {
	c.inner.Add(key, val)
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	return c.inner.Len()
}
