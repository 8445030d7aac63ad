package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	TaskCacheTTL     = 30 * time.Minute
	TaskListCacheTTL = 5 * time.Minute

	taskListPattern = "tasks:list:*"
)

func taskCacheKey(id uuid.UUID) string {
	return "task:" + id.String()
}

func taskListCacheKey(filter TaskFilter) string {
	return "tasks:list:" + filter.CacheKey()
}

// CachedTaskService is a read-through cache in front of a TaskService.
// Cache errors are logged and never surface to the caller. Concurrent
// misses on the same key share one store read.
//
// Every invalidation bumps generation. A load only writes its result back
// when no invalidation happened since it started, so a read racing a write
// cannot put the pre-write value back into the cache.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	taskTTL     time.Duration
	listTTL     time.Duration
	loads       singleflight.Group
	generation  atomic.Uint64
}

var _ TaskService = (*CachedTaskService)(nil)

func NewCachedTaskService(taskService TaskService, cacheInstance cache.Cache) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
		taskTTL:     TaskCacheTTL,
		listTTL:     TaskListCacheTTL,
	}
}

// WithTTLs overrides the entry lifetimes. Zero values keep the defaults.
func (s *CachedTaskService) WithTTLs(task, list time.Duration) *CachedTaskService {
	if task > 0 {
		s.taskTTL = task
	}
	if list > 0 {
		s.listTTL = list
	}
	return s
}

func (s *CachedTaskService) get(key string, dest interface{}) bool {
	err := s.cache.Get(key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *CachedTaskService) set(key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Set(key, value, ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

// fill stores a value loaded while the cache was at generation gen.
func (s *CachedTaskService) fill(key string, value interface{}, ttl time.Duration, gen uint64) {
	if s.generation.Load() != gen {
		return
	}
	s.set(key, value, ttl)
	if s.generation.Load() != gen {
		// an invalidation ran between the check and the write
		if err := s.cache.Delete(key); err != nil {
			slog.Warn("cache invalidation failed", "key", key, "error", err)
		}
	}
}

// flight names a shared load. Loads started after an invalidation never
// join one started before it.
func flight(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

func (s *CachedTaskService) invalidate(ids ...uuid.UUID) {
	s.generation.Add(1)
	for _, id := range ids {
		if err := s.cache.Delete(taskCacheKey(id)); err != nil {
			slog.Warn("cache invalidation failed", "key", taskCacheKey(id), "error", err)
		}
	}
	if err := s.cache.DeletePattern(taskListPattern); err != nil {
		slog.Warn("cache invalidation failed", "pattern", taskListPattern, "error", err)
	}
}

func (s *CachedTaskService) CreateTask(ctx context.Context, db *gorm.DB, task *models.Task) (*models.Task, error) {
	created, err := s.taskService.CreateTask(ctx, db, task)
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.set(taskCacheKey(created.ID), created, s.taskTTL)
	return created, nil
}

func (s *CachedTaskService) GetTaskByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	var cached models.Task
	if s.get(taskCacheKey(id), &cached) {
		return &cached, nil
	}

	key := taskCacheKey(id)
	gen := s.generation.Load()
	v, err, _ := s.loads.Do(flight(key, gen), func() (interface{}, error) {
		task, err := s.taskService.GetTaskByID(ctx, db, id)
		if err != nil {
			return nil, err
		}
		s.fill(key, task, s.taskTTL, gen)
		return task, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Task), nil
}

func (s *CachedTaskService) GetTaskHistory(ctx context.Context, db *gorm.DB, id uuid.UUID) ([]models.ChangeEntry, error) {
	task, err := s.GetTaskByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if task.History == nil {
		return []models.ChangeEntry{}, nil
	}
	return task.History, nil
}

func (s *CachedTaskService) ListTasks(ctx context.Context, db *gorm.DB, filter TaskFilter) ([]models.Task, error) {
	key := taskListCacheKey(filter)

	var cached []models.Task
	if s.get(key, &cached) {
		return cached, nil
	}

	gen := s.generation.Load()
	v, err, _ := s.loads.Do(flight(key, gen), func() (interface{}, error) {
		tasks, err := s.taskService.ListTasks(ctx, db, filter)
		if err != nil {
			return nil, err
		}
		s.fill(key, tasks, s.listTTL, gen)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Task), nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, db *gorm.DB, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, db, id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidate(id)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	if err := s.taskService.DeleteTask(ctx, db, id); err != nil {
		return err
	}

	s.invalidate(id)
	return nil
}

func (s *CachedTaskService) SeedTasks(ctx context.Context, db *gorm.DB) (*SeedResult, error) {
	result, err := s.taskService.SeedTasks(ctx, db)
	if err != nil {
		return nil, err
	}

	s.invalidate()
	return result, nil
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}
