package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedTask struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	config := DefaultCacheConfig()
	config.Addr = mr.Addr()

	c := NewRedisCache(config)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Empty(t, config.Password)
	assert.Zero(t, config.DB)
	assert.Equal(t, "tasktrack:", config.Prefix)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 5, config.MinIdleConns)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, 3*time.Second, config.ReadTimeout)
	assert.Equal(t, 3*time.Second, config.WriteTimeout)
}

func TestNewRedisCache_NilConfigUsesDefaults(t *testing.T) {
	c := NewRedisCache(nil)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Client())
	assert.Equal(t, "tasktrack:", c.prefix)
	assert.Equal(t, 3*time.Second, c.timeout)
}

func TestRedisCache_TaskRoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	task := cachedTask{ID: "abc", Title: "Write docs", Tags: []string{"docs", "UI/UX"}}

	require.NoError(t, c.Set("task:abc", task, time.Minute))

	var got cachedTask
	require.NoError(t, c.Get("task:abc", &got))
	assert.Equal(t, task, got)

	assert.True(t, mr.Exists("tasktrack:task:abc"))
	assert.False(t, mr.Exists("task:abc"))
	assert.Equal(t, time.Minute, mr.TTL("tasktrack:task:abc"))
}

func TestRedisCache_MissAndErrors(t *testing.T) {
	c, mr := setupTestRedis(t)

	var got cachedTask
	assert.ErrorIs(t, c.Get("task:missing", &got), ErrCacheMiss)

	assert.Error(t, c.Set("task:chan", make(chan int), time.Minute), "unmarshalable values are rejected")

	mr.Set("tasktrack:task:garbled", "not-json")
	err := c.Get("task:garbled", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteAndExists(t *testing.T) {
	c, _ := setupTestRedis(t)

	exists, err := c.Exists("task:abc")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Set("task:abc", cachedTask{ID: "abc"}, time.Minute))
	exists, err = c.Exists("task:abc")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete("task:abc"))
	var got cachedTask
	assert.ErrorIs(t, c.Get("task:abc", &got), ErrCacheMiss)
}

func TestRedisCache_DeletePatternDropsListsOnly(t *testing.T) {
	c, mr := setupTestRedis(t)

	for _, key := range []string{"tasks:list:all", "tasks:list:status=Pending", "tasks:list:tags=UI/UX", "task:abc"} {
		require.NoError(t, c.Set(key, "data", time.Minute))
	}
	mr.Set("otherapp:tasks:list:all", "x")

	require.NoError(t, c.DeletePattern("tasks:list:*"))

	assert.False(t, mr.Exists("tasktrack:tasks:list:all"))
	assert.False(t, mr.Exists("tasktrack:tasks:list:status=Pending"))
	assert.False(t, mr.Exists("tasktrack:tasks:list:tags=UI/UX"))
	assert.True(t, mr.Exists("tasktrack:task:abc"))
	assert.True(t, mr.Exists("otherapp:tasks:list:all"), "keys outside the prefix survive")

	assert.NoError(t, c.DeletePattern("tasks:list:*"), "empty match is not an error")
}

func TestRedisCache_Expiration(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, c.Set("tasks:list:all", []cachedTask{}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got []cachedTask
	assert.ErrorIs(t, c.Get("tasks:list:all", &got), ErrCacheMiss)
}

func TestRedisCache_CircuitOpensWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1
	config.DialTimeout = 100 * time.Millisecond
	config.OpTimeout = 200 * time.Millisecond
	config.Breaker = &CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour, HalfOpenMaxCalls: 1}
	c := NewRedisCache(config)
	t.Cleanup(func() { _ = c.Close() })

	mr.Close()

	for i := 0; i < 2; i++ {
		require.Error(t, c.Set("task:abc", "v", time.Minute))
	}
	require.Equal(t, CircuitBreakerOpen, c.breaker.GetState())

	assert.ErrorIs(t, c.Set("task:abc", "v", time.Minute), ErrCacheDown)
	assert.GreaterOrEqual(t, c.Stats()["errors"].(int64), int64(3))
}

func TestRedisCache_MissDoesNotTripBreaker(t *testing.T) {
	c, _ := setupTestRedis(t)

	var got cachedTask
	for i := 0; i < 10; i++ {
		require.ErrorIs(t, c.Get("task:missing", &got), ErrCacheMiss)
	}

	assert.Equal(t, CircuitBreakerClosed, c.breaker.GetState())
	assert.EqualValues(t, 10, c.metrics.GetStats().Misses)
}

func TestRedisCache_HealthAndStats(t *testing.T) {
	c, mr := setupTestRedis(t)

	assert.NoError(t, c.Health())

	stats := c.Stats()
	assert.Contains(t, stats, "circuit_breaker")
	assert.Contains(t, stats, "hit_rate")

	mr.Close()
	assert.Error(t, c.Health())
}

func TestRedisCache_UseAfterClose(t *testing.T) {
	c, _ := setupTestRedis(t)

	require.NoError(t, c.Close())
	assert.Error(t, c.Set("task:abc", "data", time.Minute))
}

func TestSentinelMessages(t *testing.T) {
	assert.EqualError(t, ErrCacheMiss, "cache miss")
	assert.EqualError(t, ErrCacheDown, "cache unavailable")
}

func BenchmarkRedisCache_SetTask(b *testing.B) {
	mr := miniredis.RunT(b)
	c := NewRedisCache(&CacheConfig{Addr: mr.Addr(), Prefix: "tasktrack:"})
	task := cachedTask{ID: "abc", Title: "Write docs", Tags: []string{"docs"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Set("task:abc", task, time.Minute); err != nil {
			b.Fatalf("set failed: %v", err)
		}
	}
}

func BenchmarkRedisCache_GetTask(b *testing.B) {
	mr := miniredis.RunT(b)
	c := NewRedisCache(&CacheConfig{Addr: mr.Addr(), Prefix: "tasktrack:"})
	if err := c.Set("task:abc", cachedTask{ID: "abc"}, time.Minute); err != nil {
		b.Fatalf("set failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var got cachedTask
		if err := c.Get("task:abc", &got); err != nil {
			b.Fatalf("get failed: %v", err)
		}
	}
}
