package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache traffic for one cache level. All methods are
// safe for concurrent use.
type CacheMetrics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	startTime atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of CacheMetrics.
type MetricsSnapshot struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Errors    int64 `json:"errors"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	StartTime int64 `json:"start_time"`
}

func NewCacheMetrics() *CacheMetrics {
	m := &CacheMetrics{}
	m.startTime.Store(time.Now().Unix())
	return m
}

func (m *CacheMetrics) RecordHit()      { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()     { m.misses.Add(1) }
func (m *CacheMetrics) RecordError()    { m.errors.Add(1) }
func (m *CacheMetrics) RecordSet()      { m.sets.Add(1) }
func (m *CacheMetrics) RecordDelete()   { m.deletes.Add(1) }
func (m *CacheMetrics) RecordEviction() { m.evictions.Add(1) }

func (m *CacheMetrics) GetStats() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Errors:    m.errors.Load(),
		Sets:      m.sets.Load(),
		Deletes:   m.deletes.Load(),
		Evictions: m.evictions.Load(),
		StartTime: m.startTime.Load(),
	}
}

// HitRate is the percentage of lookups served from this level.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

func (m *CacheMetrics) Reset() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.errors.Store(0)
	m.sets.Store(0)
	m.deletes.Store(0)
	m.evictions.Store(0)
	m.startTime.Store(time.Now().Unix())
}
