package currency

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/fx-ledger/internal/utils"
)

// MemoryCache keeps rate tables in process memory
type MemoryCache struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tables: make(map[string]Table)}
}

// Get returns the cached table for date
func (c *MemoryCache) Get(_ context.Context, date time.Time) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[utils.FormatDate(date)]
	return t, ok
}

// Set stores the table for date
func (c *MemoryCache) Set(_ context.Context, date time.Time, table Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[utils.FormatDate(date)] = table
	return nil
}

// EvictBefore drops every table dated strictly before cutoff and returns how many were removed
func (c *MemoryCache) EvictBefore(cutoff time.Time) int {
	key := utils.FormatDate(cutoff)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.tables {
		// YYYY-MM-DD keys order lexically
		if k < key {
			delete(c.tables, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached tables
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
