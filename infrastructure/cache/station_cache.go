package cache

import (
	"sync"
)

// StationCache keeps one in-memory value per station. Values are never
// persisted; a restart starts every station from scratch.
type StationCache[T any] struct {
	mu    sync.Mutex
	items map[string]T
	init  func() T
}

// NewStationCache creates a cache that builds missing values with init.
func NewStationCache[T any](init func() T) *StationCache[T] {
	return &StationCache[T]{items: make(map[string]T), init: init}
}

// Update runs fn on the station's value while holding the cache lock,
// creating the value first if needed. fn must not block.
func (c *StationCache[T]) Update(station string, fn func(T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[station]
	if !ok {
		v = c.init()
		c.items[station] = v
	}
	return fn(v)
}

// Delete drops the station's value; the next Update starts from init.
func (c *StationCache[T]) Delete(station string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, station)
}
