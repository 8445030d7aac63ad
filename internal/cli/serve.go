package cli

import (
	"context"
	"fmt"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/server"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg := a.config

	pool, err := a.openPool()
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(pool.DB); err != nil {
			_ = pool.Close()
			return err
		}
	}

	taskCache := a.openCache()
	opts := server.Options{
		Config:      cfg,
		Pool:        pool,
		TaskService: a.taskService(taskCache),
		Logger:      a.logger,
	}
	if taskCache != nil {
		opts.Cache = taskCache
	}

	srv, err := server.New(opts)
	if err != nil {
		closeStores(pool, taskCache)
		return err
	}
	srv.Start()
	a.logger.Info("tasktrack started",
		"addr", srv.Addr(),
		"environment", cfg.Server.Environment,
		"database", cfg.Database.Driver,
		"cache", cacheBackend(cfg.Cache.Enabled, cfg.Redis.Enabled))

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	wait := gfshutdown.GracefulShutdown(
		cmd.Context(),
		timeout,
		map[string]gfshutdown.Operation{
			"tasktrack": func(ctx context.Context) error {
				err := srv.Stop(ctx)
				closeStores(pool, taskCache)
				return err
			},
		},
	)

	if code := <-wait; code != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", code)
	}
	a.logger.Info("tasktrack stopped")
	return nil
}

func closeStores(pool *database.DatabasePool, c *cache.MultiLevelCache) {
	if c != nil {
		_ = c.Close()
	}
	_ = pool.Close()
}

func cacheBackend(cacheEnabled, redisEnabled bool) string {
	switch {
	case !cacheEnabled:
		return "off"
	case redisEnabled:
		return "memory+redis"
	default:
		return "memory"
	}
}
