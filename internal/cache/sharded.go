// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a sharded LRU cache used for compiled program
// handles and other GPU-adjacent lookups.
package cache

import (
	"hash/fnv"
	"sync"
)

// Defaults.
const (
	// shardCount is a power of 2 so shard selection is a bitwise AND.
	shardCount = 16

	// DefaultCapacity is the per-shard entry limit when none is given.
	DefaultCapacity = 128

	shardMask = shardCount - 1
)

// Hasher computes the shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// StringHasher hashes a string key with FNV-1a.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// EvictFunc is invoked for every entry removed by capacity eviction,
// Delete, or Clear. Program caches use it to destroy GPU handles that
// would otherwise leak when a key falls out of the cache.
type EvictFunc[K comparable, V any] func(key K, value V)

// Sharded is a thread-safe sharded LRU cache. Sixteen independently
// locked shards keep contention low when the registry is synced while a
// frame is in flight.
type Sharded[K comparable, V any] struct {
	shards   [shardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int
	onEvict  EvictFunc[K, V]
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*node[K, V]
	// Intrusive doubly linked list; head is most recent.
	head, tail *node[K, V]
}

type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// New creates a sharded cache. capacity is per shard; <= 0 selects
// DefaultCapacity. onEvict may be nil.
func New[K comparable, V any](capacity int, hasher Hasher[K], onEvict EvictFunc[K, V]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity, onEvict: onEvict}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{entries: make(map[K]*node[K, V])}
	}
	return c
}

func (c *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get returns the cached value and moves it to the front of its shard.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	s.moveToFront(n)
	return n.value, true
}

// Set stores a value, evicting the least recently used entry if the
// shard is full. Replacing an existing key does not trigger eviction of
// the old value; callers own replacement semantics.
func (c *Sharded[K, V]) Set(key K, value V) {
	s := c.shardFor(key)
	s.mu.Lock()

	if n, ok := s.entries[key]; ok {
		n.value = value
		s.moveToFront(n)
		s.mu.Unlock()
		return
	}

	var evicted []*node[K, V]
	for len(s.entries) >= c.capacity && s.tail != nil {
		old := s.tail
		s.unlink(old)
		delete(s.entries, old.key)
		evicted = append(evicted, old)
	}

	n := &node[K, V]{key: key, value: value}
	s.entries[key] = n
	s.pushFront(n)
	s.mu.Unlock()

	// Run eviction callbacks outside the shard lock: destroying a GPU
	// handle may be arbitrarily slow.
	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.value)
		}
	}
}

// Delete removes a key, invoking the eviction callback if present.
func (c *Sharded[K, V]) Delete(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	n, ok := s.entries[key]
	if ok {
		s.unlink(n)
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(n.key, n.value)
	}
	return ok
}

// Clear removes every entry, invoking the eviction callback for each.
// Used on context loss, where all compiled programs become invalid.
func (c *Sharded[K, V]) Clear() {
	var evicted []*node[K, V]
	for _, s := range c.shards {
		s.mu.Lock()
		for _, n := range s.entries {
			evicted = append(evicted, n)
		}
		s.entries = make(map[K]*node[K, V])
		s.head, s.tail = nil, nil
		s.mu.Unlock()
	}
	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.value)
		}
	}
}

// Len returns the total number of cached entries.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// list helpers; caller holds the shard lock.

func (s *shard[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *shard[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if s.head == n {
		return
	}
	s.unlink(n)
	s.pushFront(n)
}
