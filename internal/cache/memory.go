package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is the in-process first cache level. Values are stored as JSON
// so callers never share mutable state with the cache.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryEntry
	metrics *CacheMetrics
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items:   make(map[string]memoryEntry),
		metrics: NewCacheMetrics(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// StartSweeper removes expired entries every interval until Close is called.
func (c *MemoryCache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *MemoryCache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
			c.metrics.RecordEviction()
		}
	}
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	c.setRaw(key, data, ttl)
	return nil
}

func (c *MemoryCache) setRaw(key string, data []byte, ttl time.Duration) {
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = entry
	c.mu.Unlock()
	c.metrics.RecordSet()
}

func (c *MemoryCache) Get(key string, dest interface{}) error {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || entry.expired(c.now()) {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	c.metrics.RecordHit()
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	c.metrics.RecordDelete()
	return nil
}

// DeletePattern removes keys matching a glob pattern. Only "*" and "?" are
// special, and unlike path.Match "*" also crosses "/".
func (c *MemoryCache) DeletePattern(pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if globMatch(pattern, key) {
			delete(c.items, key)
			c.metrics.RecordDelete()
		}
	}
	return nil
}

func (c *MemoryCache) Exists(key string) (bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	return ok && !entry.expired(c.now()), nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *MemoryCache) Stats() map[string]interface{} {
	m := c.metrics.GetStats()
	return map[string]interface{}{
		"items":     c.Len(),
		"hits":      m.Hits,
		"misses":    m.Misses,
		"errors":    m.Errors,
		"sets":      m.Sets,
		"deletes":   m.Deletes,
		"evictions": m.Evictions,
		"hit_rate":  c.metrics.HitRate(),
	}
}

func (c *MemoryCache) Health() error {
	return nil
}

func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func globMatch(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
