package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

const scanBatchSize = 100

type RedisCache struct {
	client  *redis.Client
	prefix  string
	breaker *CircuitBreaker
	metrics *CacheMetrics
	timeout time.Duration
}

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	OpTimeout    time.Duration
	Breaker      *CircuitBreakerConfig
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		Prefix:       "tasktrack:",
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		OpTimeout:    3 * time.Second,
	}
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	timeout := config.OpTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisCache{
		client:  rdb,
		prefix:  config.Prefix,
		breaker: NewCircuitBreaker(config.Breaker),
		metrics: NewCacheMetrics(),
		timeout: timeout,
	}
}

// Client exposes the underlying connection for health checks.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) do(fn func(ctx context.Context) error) error {
	err := r.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		return fn(ctx)
	})
	if errors.Is(err, ErrCircuitBreakerOpen) {
		r.metrics.RecordError()
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	if err != nil {
		r.metrics.RecordError()
	}
	return err
}

func (r *RedisCache) Set(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	err = r.do(func(ctx context.Context) error {
		return r.client.Set(ctx, r.key(key), data, expiration).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	r.metrics.RecordSet()
	return nil
}

func (r *RedisCache) Get(key string, dest interface{}) error {
	var data []byte
	miss := false
	err := r.do(func(ctx context.Context) error {
		b, err := r.client.Get(ctx, r.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get from cache: %w", err)
	}
	if miss {
		r.metrics.RecordMiss()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.metrics.RecordError()
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	r.metrics.RecordHit()
	return nil
}

func (r *RedisCache) Delete(key string) error {
	err := r.do(func(ctx context.Context) error {
		return r.client.Del(ctx, r.key(key)).Err()
	})
	if err == nil {
		r.metrics.RecordDelete()
	}
	return err
}

// DeletePattern removes every key matching the glob pattern. It walks the
// keyspace with SCAN so a large cache does not block the server.
func (r *RedisCache) DeletePattern(pattern string) error {
	return r.do(func(ctx context.Context) error {
		iter := r.client.Scan(ctx, 0, r.key(pattern), scanBatchSize).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan keys for pattern %s: %w", pattern, err)
		}
		if len(keys) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		r.metrics.RecordDelete()
		return nil
	})
}

func (r *RedisCache) Exists(key string) (bool, error) {
	var n int64
	err := r.do(func(ctx context.Context) error {
		var err error
		n, err = r.client.Exists(ctx, r.key(key)).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Health pings Redis directly, bypassing the breaker, so a recovered server
// is noticed.
func (r *RedisCache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	poolStats := r.client.PoolStats()
	metrics := r.metrics.GetStats()

	return map[string]interface{}{
		"hits":            metrics.Hits,
		"misses":          metrics.Misses,
		"errors":          metrics.Errors,
		"sets":            metrics.Sets,
		"deletes":         metrics.Deletes,
		"hit_rate":        r.metrics.HitRate(),
		"circuit_breaker": r.breaker.GetStats(),
		"pool_hits":       poolStats.Hits,
		"pool_misses":     poolStats.Misses,
		"pool_timeouts":   poolStats.Timeouts,
		"pool_total":      poolStats.TotalConns,
		"pool_idle":       poolStats.IdleConns,
		"pool_stale":      poolStats.StaleConns,
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
