package cli

import (
	"fmt"
	"io"
	"log/slog"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/config"
	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/logging"
	"tasktrack/backend/internal/repositories"
	"tasktrack/backend/internal/services"
)

// app bundles what every command needs once configuration is loaded.
type app struct {
	config *config.Config
	logger *slog.Logger
}

func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logOut, cfg.Log, cfg.IsProduction())
	slog.SetDefault(logger)

	return &app{config: cfg, logger: logger}, nil
}

func (a *app) openPool() (*database.DatabasePool, error) {
	db := a.config.Database
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          db.Driver,
		DSN:             a.config.GetDatabaseDSN(),
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
		LogLevel:        logging.GormLevel(a.config.Log.Level),
		SlowThreshold:   db.SlowThreshold,
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// openCache returns the memory cache, backed by Redis when enabled, or nil
// when caching is switched off.
func (a *app) openCache() *cache.MultiLevelCache {
	if !a.config.Cache.Enabled {
		return nil
	}

	var l2 *cache.RedisCache
	if a.config.Redis.Enabled {
		rc := a.config.Redis
		l2 = cache.NewRedisCache(&cache.CacheConfig{
			Addr:         a.config.GetRedisAddr(),
			Password:     rc.Password,
			DB:           rc.DB,
			Prefix:       rc.Prefix,
			PoolSize:     rc.PoolSize,
			MinIdleConns: rc.MinIdleConns,
			MaxRetries:   rc.MaxRetries,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
			Breaker: &cache.CircuitBreakerConfig{
				MaxFailures: a.config.Cache.BreakerFailures,
				Timeout:     a.config.Cache.BreakerTimeout,
			},
		})
		if err := l2.Health(); err != nil {
			a.logger.Warn("redis not reachable at startup, serving from memory until it recovers",
				"addr", a.config.GetRedisAddr(), "error", err)
		}
	}

	c := cache.NewMultiLevelCache(l2).WithL1TTL(a.config.Cache.L1TTL)
	c.StartSweeper(0)
	return c
}

func (a *app) taskService(c *cache.MultiLevelCache) services.TaskService {
	repo := repositories.NewTaskRepository()
	var svc services.TaskService = services.NewTaskService(repo, services.NewSeeder(repo, nil))
	if c != nil {
		svc = services.NewCachedTaskService(svc, c).WithTTLs(a.config.Cache.TaskTTL, a.config.Cache.ListTTL)
	}
	return svc
}
