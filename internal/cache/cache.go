// Package cache holds fetched comment pages keyed by query and variables.
//
// One Cache is shared by every view and submission in a session. Callers pass
// it explicitly; there is no package-level instance.
package cache

import (
	"fmt"
	"sync"

	"github.com/evcraddock/collective-threads/internal/comment"
)

// Key identifies one cached query result.
type Key struct {
	Query  string
	Parent comment.Parent
	Limit  int
	Offset int
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%s,%d,%d)[%d]", k.Query, k.Parent.Kind, k.Parent.ID, k.Limit, k.Offset)
}

// Cache is a concurrency-safe keyed page store. Last writer wins per key.
// Pages are copied in and out so no caller can alias cached nodes.
//
// Views register interest in a key with Retain. A page lives until the last
// view of its key is released.
type Cache struct {
	mu    sync.RWMutex
	pages map[Key]comment.Page
	views map[Key]int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		pages: make(map[Key]comment.Page),
		views: make(map[Key]int),
	}
}

// Read returns the page stored under k.
func (c *Cache) Read(k Key) (comment.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.pages[k]
	if !ok {
		return comment.Page{}, false
	}
	return p.Clone(), true
}

// Write replaces the page stored under k.
func (c *Cache) Write(k Key, p comment.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages[k] = p.Clone()
}

// Retain records one more view of k.
func (c *Cache) Retain(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.views[k]++
}

// Release drops one view of k. When no view remains the page is evicted and
// Release returns true. Releasing a key nobody retained is a no-op.
func (c *Cache) Release(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.views[k]
	if !ok {
		return false
	}
	if n > 1 {
		c.views[k] = n - 1
		return false
	}
	delete(c.views, k)
	delete(c.pages, k)
	return true
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.pages)
}
