package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/config"
	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/handlers"
	"tasktrack/backend/internal/middleware"
	"tasktrack/backend/internal/monitoring"
	"tasktrack/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options carries everything the HTTP server needs. Pool and Cache are
// optional; without them the matching health checks are not registered.
type Options struct {
	Config      *config.Config
	Pool        *database.DatabasePool
	Cache       cache.Cache
	TaskService services.TaskService
	Logger      *slog.Logger
}

type Server struct {
	config     *config.Config
	logger     *slog.Logger
	engine     *gin.Engine
	monitor    *monitoring.Monitor
	limiter    *middleware.IPRateLimiter
	httpServer *http.Server
	stop       chan struct{}
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server config is required")
	}
	if opts.Pool == nil || opts.Pool.DB == nil {
		return nil, errors.New("database pool is required")
	}
	if opts.TaskService == nil {
		return nil, errors.New("task service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		engine:  gin.New(),
		monitor: monitoring.NewMonitor(),
		stop:    make(chan struct{}),
	}

	s.engine.Use(middleware.RecoveryWithLog())
	s.engine.Use(middleware.RequestLogger(logger))
	s.engine.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	s.engine.Use(s.monitor.Middleware())
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: float64(cfg.RateLimit.RequestsPerMin) / 60,
			Burst:             cfg.RateLimit.BurstSize,
			IdleTTL:           cfg.RateLimit.CleanupInterval,
		})
		s.engine.Use(middleware.RateLimit(s.limiter))
	}

	s.registerChecks(opts)
	s.registerRoutes(opts)

	s.httpServer = &http.Server{
		Addr:              cfg.GetServerAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) registerChecks(opts Options) {
	pool := opts.Pool
	s.monitor.RegisterHealthCheck("database", func(ctx context.Context) error {
		return pool.Health()
	})
	s.monitor.RegisterStats("database", pool.Stats)

	if opts.Cache != nil {
		c := opts.Cache
		s.monitor.RegisterHealthCheck("cache", func(ctx context.Context) error {
			return c.Health()
		})
		s.monitor.RegisterStats("cache", c.Stats)
	}
}

func (s *Server) registerRoutes(opts Options) {
	s.engine.GET("/", handlers.Welcome)

	s.engine.GET("/health", s.monitor.HealthHandler())
	s.engine.GET("/health/ready", s.monitor.ReadinessHandler())
	s.engine.GET("/health/live", s.monitor.LivenessHandler())
	s.engine.GET("/metrics", s.monitor.MetricsHandler())

	seedGuard := middleware.AuthzMiddleware(middleware.AuthzConfig{
		Enabled: s.config.Auth.SeedAuthEnabled,
		Secret:  s.config.Auth.SeedSecret,
		Issuer:  s.config.Auth.Issuer,
		Scopes:  []string{middleware.ScopeSeed},
	})

	taskHandler := handlers.NewTaskHandler(opts.Pool.DB, opts.TaskService)
	taskHandler.RegisterRoutes(s.engine.Group("/api"), seedGuard)
	taskHandler.RegisterRoutes(&s.engine.RouterGroup, seedGuard)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	if s.limiter != nil {
		go s.cleanupVisitors(s.config.RateLimit.CleanupInterval)
	}

	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
}

func (s *Server) cleanupVisitors(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.limiter.Cleanup(); n > 0 {
				s.logger.Debug("rate limiter visitors evicted", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
