// Package arenacache implements the bounded LRU of mapped, rolled-off
// arenas that lets a consumer just behind the producer reuse an
// already-mapped region instead of reopening the file.
//
// No library in the example corpus this module was grounded on provides an
// LRU cache (the closest false-positive was "mailru/easyjson", an unrelated
// JSON codec) — see DESIGN.md. container/list plus a map is the standard
// textbook LRU shape and is what this package uses.
package arenacache

import (
	"container/list"

	"github.com/arenafile/bigqueue/pkg/bigqueue/internal/arena"
)

type entry struct {
	aid   uint64
	arena *arena.Arena
}

// Cache is a bounded least-recently-used map from arena id to a resident
// *arena.Arena handle. Capacity must be at least 1.
//
// Cache is not safe for concurrent use; package bigqueue guards it with the
// Queue's cacheMu mutex (see bigqueue.go) since both the producer (on tail
// rollover) and the consumer (on head rollover) touch it.
type Cache struct {
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element
}

// New returns a Cache with the given capacity. Panics if capacity < 1.
func New(capacity int) *Cache {
	if capacity < 1 {
		panic("arenacache: capacity must be >= 1")
	}

	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Take removes and returns the arena cached under aid, if present. A
// successful Take transfers ownership to the caller — the cache no longer
// tracks or closes that arena.
func (c *Cache) Take(aid uint64) (*arena.Arena, bool) {
	el, ok := c.items[aid]
	if !ok {
		return nil, false
	}

	ent := el.Value.(*entry) //nolint:forcetypeassert

	c.ll.Remove(el)
	delete(c.items, aid)

	return ent.arena, true
}

// Put inserts a into the cache under aid. If this pushes the cache over
// capacity, the least-recently-used entry is evicted and closed. Put
// returns the error (if any) from closing an evicted arena; the insert
// itself always succeeds.
func (c *Cache) Put(aid uint64, a *arena.Arena) error {
	if el, ok := c.items[aid]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*entry).arena = a //nolint:forcetypeassert

		return nil
	}

	el := c.ll.PushFront(&entry{aid: aid, arena: a})
	c.items[aid] = el

	if c.ll.Len() <= c.capacity {
		return nil
	}

	oldest := c.ll.Back()
	c.ll.Remove(oldest)

	ent := oldest.Value.(*entry) //nolint:forcetypeassert
	delete(c.items, ent.aid)

	return ent.arena.Close()
}

// Len returns the number of arenas currently resident in the cache.
func (c *Cache) Len() int {
	return c.ll.Len()
}

// Close closes every arena still resident in the cache and empties it.
// Returns the first error encountered, if any, but attempts to close every
// entry regardless.
func (c *Cache) Close() error {
	var firstErr error

	for _, el := range c.items {
		ent := el.Value.(*entry) //nolint:forcetypeassert
		if err := ent.arena.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.items = make(map[uint64]*list.Element, c.capacity)
	c.ll.Init()

	return firstErr
}
