package table

import (
	"path/filepath"
	"sync"
)

// Cache holds loaded tables keyed by source identity. Entries live until
// Invalidate or Clear is called.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Table
}

func NewCache() *Cache {
	return &Cache{entries: map[string]*Table{}}
}

// Get returns the cached table for key, calling load on a miss. Failed loads
// are not cached.
func (c *Cache) Get(key string, load func() (*Table, error)) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tbl, ok := c.entries[key]; ok {
		return tbl, nil
	}
	tbl, err := load()
	if err != nil {
		return nil, err
	}
	c.entries[key] = tbl
	return tbl, nil
}

func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*Table{}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FileKey identifies a table read from disk.
func FileKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return "file:" + abs
	}
	return "file:" + path
}
