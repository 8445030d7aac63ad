package cache

import (
	"errors"
	"time"
)

// DefaultL1TTL bounds how long a process may serve an entry that another
// process has already invalidated in Redis.
const DefaultL1TTL = time.Minute

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	DeletePattern(pattern string) error
	Exists(key string) (bool, error)
	Stats() map[string]interface{}
	Health() error
	Close() error
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MultiLevelCache)(nil)
)

// MultiLevelCache reads through an in-process L1 to an optional Redis L2.
// With a nil L2 it is a plain memory cache.
type MultiLevelCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:    NewMemoryCache(),
		l2:    redisCache,
		l1TTL: DefaultL1TTL,
	}
}

// WithL1TTL caps the lifetime of L1 entries. Zero keeps the default.
func (c *MultiLevelCache) WithL1TTL(ttl time.Duration) *MultiLevelCache {
	if ttl > 0 {
		c.l1TTL = ttl
	}
	return c
}

// StartSweeper evicts expired L1 entries in the background until Close.
func (c *MultiLevelCache) StartSweeper(interval time.Duration) {
	c.l1.StartSweeper(interval)
}

func (c *MultiLevelCache) localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

func (c *MultiLevelCache) Set(key string, value interface{}, ttl time.Duration) error {
	if err := c.l1.Set(key, value, c.localTTL(ttl)); err != nil {
		return err
	}

	if c.l2 != nil {
		return c.l2.Set(key, value, ttl)
	}

	return nil
}

func (c *MultiLevelCache) Get(key string, dest interface{}) error {
	if err := c.l1.Get(key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		_ = c.l1.Delete(key)
	}

	if c.l2 == nil {
		return ErrCacheMiss
	}

	if err := c.l2.Get(key, dest); err != nil {
		return err
	}
	_ = c.l1.Set(key, dest, c.l1TTL)
	return nil
}

func (c *MultiLevelCache) Delete(key string) error {
	_ = c.l1.Delete(key)

	if c.l2 != nil {
		return c.l2.Delete(key)
	}

	return nil
}

func (c *MultiLevelCache) DeletePattern(pattern string) error {
	_ = c.l1.DeletePattern(pattern)

	if c.l2 != nil {
		return c.l2.DeletePattern(pattern)
	}

	return nil
}

func (c *MultiLevelCache) Exists(key string) (bool, error) {
	if ok, _ := c.l1.Exists(key); ok {
		return true, nil
	}

	if c.l2 != nil {
		return c.l2.Exists(key)
	}

	return false, nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"l2":      nil,
		"l1_ttl":  c.l1TTL.String(),
		"backend": "memory",
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
		stats["backend"] = "memory+redis"
	}

	return stats
}

func (c *MultiLevelCache) Health() error {
	if c.l2 != nil {
		return c.l2.Health()
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	_ = c.l1.Close()

	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}
