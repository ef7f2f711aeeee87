package services

import (
	"context"
	"sync"
	"time"

	"moneymind/internal/cache"
	"moneymind/internal/core"
	"moneymind/internal/events"
)

// SpendingCache memoises per-user monthly category totals. Any transaction
// change for a user drops that user's entries and bumps the user's
// generation, so totals read before the change are never stored after it.
type SpendingCache struct {
	lru *cache.LRUCache[[]core.CategoryAmount]

	mu          sync.Mutex
	generations map[string]uint64
}

func NewSpendingCache(size int, ttl time.Duration) *SpendingCache {
	return &SpendingCache{
		lru:         cache.NewLRUCache[[]core.CategoryAmount](size, ttl),
		generations: make(map[string]uint64),
	}
}

func spendingKey(userID string, m core.Month) string {
	return userID + "|" + m.String()
}

// cloneAmounts copies v and keeps an empty result non-nil.
func cloneAmounts(v []core.CategoryAmount) []core.CategoryAmount {
	out := make([]core.CategoryAmount, len(v))
	copy(out, v)
	return out
}

func (c *SpendingCache) get(userID string, m core.Month) ([]core.CategoryAmount, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(spendingKey(userID, m))
	if !ok {
		return nil, false
	}
	return cloneAmounts(v), true
}

// generation is read before loading transactions and handed back to set.
func (c *SpendingCache) generation(userID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID]
}

// set stores v unless the user's data changed since gen was read.
func (c *SpendingCache) set(userID string, m core.Month, v []core.CategoryAmount, gen uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != gen {
		return
	}
	c.lru.Set(spendingKey(userID, m), cloneAmounts(v))
}

func (c *SpendingCache) invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	c.lru.DeletePrefix(userID + "|")
}

// Publish implements events.Publisher so changes relayed from other
// instances also invalidate this cache.
func (c *SpendingCache) Publish(_ context.Context, ch events.Change) error {
	if ch.Entity == events.EntityTransaction {
		c.invalidate(ch.UserID)
	}
	return nil
}

// CleanExpired lets a cache.Manager sweep expired entries.
func (c *SpendingCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *SpendingCache) Stats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.lru.Stats()
}
