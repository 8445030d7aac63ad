package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCachedTask struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

func newTestMemoryCache(now *time.Time) *MemoryCache {
	c := NewMemoryCache()
	c.now = func() time.Time { return *now }
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	require.NoError(t, c.Set("task:1", memCachedTask{ID: "1", Tags: []string{"a"}}, time.Minute))

	var got memCachedTask
	require.NoError(t, c.Get("task:1", &got))
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	original := memCachedTask{ID: "1", Tags: []string{"a"}}
	require.NoError(t, c.Set("task:1", original, time.Minute))
	original.Tags[0] = "mutated"

	var got memCachedTask
	require.NoError(t, c.Get("task:1", &got))
	got.Tags[0] = "mutated-again"

	var again memCachedTask
	require.NoError(t, c.Get("task:1", &again))
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	require.NoError(t, c.Set("task:1", "v", time.Minute))
	now = now.Add(59 * time.Second)

	var got string
	require.NoError(t, c.Get("task:1", &got))

	now = now.Add(time.Second)
	assert.ErrorIs(t, c.Get("task:1", &got), ErrCacheMiss)

	exists, err := c.Exists("task:1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	require.NoError(t, c.Set("k", "v", 0))
	now = now.Add(24 * 365 * time.Hour)

	var got string
	assert.NoError(t, c.Get("k", &got))
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	keys := []string{
		"tasks:list:all",
		"tasks:list:status=Pending&tags=a/b,c",
		"task:123",
	}
	for _, k := range keys {
		require.NoError(t, c.Set(k, "v", time.Minute))
	}

	require.NoError(t, c.DeletePattern("tasks:list:*"))

	var got string
	assert.ErrorIs(t, c.Get("tasks:list:all", &got), ErrCacheMiss)
	assert.ErrorIs(t, c.Get("tasks:list:status=Pending&tags=a/b,c", &got), ErrCacheMiss)
	assert.NoError(t, c.Get("task:123", &got))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Sweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	require.NoError(t, c.Set("short", "v", time.Second))
	require.NoError(t, c.Set("long", "v", time.Hour))
	now = now.Add(time.Minute)

	c.sweep()

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.metrics.GetStats().Evictions)
}

func TestMemoryCache_Stats(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestMemoryCache(&now)

	require.NoError(t, c.Set("k", "v", time.Minute))
	var got string
	_ = c.Get("k", &got)
	_ = c.Get("missing", &got)

	stats := c.Stats()
	assert.Equal(t, 1, stats["items"])
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.InDelta(t, 50.0, stats["hit_rate"], 0.001)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	c.StartSweeper(time.Millisecond)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"tasks:list:*", "tasks:list:all", true},
		{"tasks:list:*", "tasks:list:", true},
		{"tasks:list:*", "task:1", false},
		{"task:?", "task:1", true},
		{"task:?", "task:12", false},
		{"*:list:*", "tasks:list:x/y", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, globMatch(tc.pattern, tc.key), "%s vs %s", tc.pattern, tc.key)
	}
}
