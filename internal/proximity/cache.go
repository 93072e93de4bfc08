// Package proximity answers "which entities are within radius R of point P",
// using resolved coordinates where they exist and lazily resolving the rest
// while a proximity view stays open.
package proximity

import (
	"sync"

	"github.com/hireloop/jobgeo/internal/model"
)

// Cache is the session-scoped geocode cache, keyed by entity id. The lazy
// resolver is its only writer; match evaluation only reads.
type Cache struct {
	mu     sync.RWMutex
	points map[string]model.GeoPoint
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{points: make(map[string]model.GeoPoint)}
}

// Get returns the cached point for an entity id.
func (c *Cache) Get(id string) (model.GeoPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.points[id]
	return p, ok
}

// Put replaces the cached point for an entity id.
func (c *Cache) Put(id string, p model.GeoPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[id] = p
}

// Has reports whether an entity id is cached.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.points[id]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}
