package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultSeedSecret = "change-me-seed-secret"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Cache     CacheConfig     `json:"cache"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Environment     string        `json:"environment"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"`
	Path            string        `json:"path"`
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowThreshold   time.Duration `json:"slow_threshold"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	Prefix       string        `json:"prefix"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	TaskTTL         time.Duration `json:"task_ttl"`
	ListTTL         time.Duration `json:"list_ttl"`
	L1TTL           time.Duration `json:"l1_ttl"`
	BreakerFailures int           `json:"breaker_failures"`
	BreakerTimeout  time.Duration `json:"breaker_timeout"`
}

// AuthConfig controls the optional bearer-token guard on the seed endpoint.
type AuthConfig struct {
	SeedAuthEnabled bool          `json:"seed_auth_enabled"`
	SeedSecret      string        `json:"seed_secret"`
	Issuer          string        `json:"issuer"`
	TokenTTL        time.Duration `json:"token_ttl"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute"`
	BurstSize       int           `json:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type binding struct {
	key string
	env string
	def interface{}
}

var bindings = []binding{
	{"server.host", "HOST", "localhost"},
	{"server.port", "PORT", "8080"},
	{"server.read_timeout", "READ_TIMEOUT", 30 * time.Second},
	{"server.write_timeout", "WRITE_TIMEOUT", 30 * time.Second},
	{"server.idle_timeout", "IDLE_TIMEOUT", 60 * time.Second},
	{"server.shutdown_timeout", "SHUTDOWN_TIMEOUT", 30 * time.Second},
	{"server.environment", "ENVIRONMENT", "development"},
	{"server.allowed_origins", "ALLOWED_ORIGINS", "*"},

	{"database.driver", "DB_DRIVER", DriverSQLite},
	{"database.path", "DB_PATH", "tasktrack.db"},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", "5432"},
	{"database.user", "DB_USER", "postgres"},
	{"database.password", "DB_PASSWORD", ""},
	{"database.name", "DB_NAME", "tasktrack"},
	{"database.ssl_mode", "DB_SSL_MODE", "disable"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 25},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 10},
	{"database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME", time.Hour},
	{"database.conn_max_idle_time", "DB_CONN_MAX_IDLE_TIME", 30 * time.Minute},
	{"database.slow_threshold", "DB_SLOW_THRESHOLD", 200 * time.Millisecond},
	{"database.auto_migrate", "DB_AUTO_MIGRATE", true},

	{"redis.enabled", "REDIS_ENABLED", false},
	{"redis.host", "REDIS_HOST", "localhost"},
	{"redis.port", "REDIS_PORT", "6379"},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},
	{"redis.prefix", "REDIS_PREFIX", "tasktrack:"},
	{"redis.pool_size", "REDIS_POOL_SIZE", 10},
	{"redis.min_idle_conns", "REDIS_MIN_IDLE_CONNS", 5},
	{"redis.max_retries", "REDIS_MAX_RETRIES", 3},
	{"redis.dial_timeout", "REDIS_DIAL_TIMEOUT", 5 * time.Second},
	{"redis.read_timeout", "REDIS_READ_TIMEOUT", 3 * time.Second},
	{"redis.write_timeout", "REDIS_WRITE_TIMEOUT", 3 * time.Second},

	{"cache.enabled", "CACHE_ENABLED", true},
	{"cache.task_ttl", "CACHE_TASK_TTL", 30 * time.Minute},
	{"cache.list_ttl", "CACHE_LIST_TTL", 5 * time.Minute},
	{"cache.l1_ttl", "CACHE_L1_TTL", time.Minute},
	{"cache.breaker_failures", "CACHE_BREAKER_FAILURES", 5},
	{"cache.breaker_timeout", "CACHE_BREAKER_TIMEOUT", 30 * time.Second},

	{"auth.seed_auth_enabled", "SEED_AUTH_ENABLED", false},
	{"auth.seed_secret", "SEED_SECRET", defaultSeedSecret},
	{"auth.issuer", "TOKEN_ISSUER", "tasktrack-backend"},
	{"auth.token_ttl", "TOKEN_TTL", time.Hour},

	{"rate_limit.enabled", "RATE_LIMIT_ENABLED", true},
	{"rate_limit.requests_per_minute", "RATE_LIMIT_RPM", 100},
	{"rate_limit.burst_size", "RATE_LIMIT_BURST", 10},
	{"rate_limit.cleanup_interval", "RATE_LIMIT_CLEANUP", 10 * time.Minute},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", ""},
}

// LoadConfig reads defaults, then the optional YAML file named by
// CONFIG_FILE, then environment variables. Later sources win.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", b.env, err)
		}
	}

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, err
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			Environment:     v.GetString("server.environment"),
			AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:      v.GetBool("redis.enabled"),
			Host:         v.GetString("redis.host"),
			Port:         v.GetString("redis.port"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			Prefix:       v.GetString("redis.prefix"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			MaxRetries:   v.GetInt("redis.max_retries"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Cache: CacheConfig{
			Enabled:         v.GetBool("cache.enabled"),
			TaskTTL:         v.GetDuration("cache.task_ttl"),
			ListTTL:         v.GetDuration("cache.list_ttl"),
			L1TTL:           v.GetDuration("cache.l1_ttl"),
			BreakerFailures: v.GetInt("cache.breaker_failures"),
			BreakerTimeout:  v.GetDuration("cache.breaker_timeout"),
		},
		Auth: AuthConfig{
			SeedAuthEnabled: v.GetBool("auth.seed_auth_enabled"),
			SeedSecret:      v.GetString("auth.seed_secret"),
			Issuer:          v.GetString("auth.issuer"),
			TokenTTL:        v.GetDuration("auth.token_ttl"),
		},
		RateLimit: RateLimitConfig{
			Enabled:         v.GetBool("rate_limit.enabled"),
			RequestsPerMin:  v.GetInt("rate_limit.requests_per_minute"),
			BurstSize:       v.GetInt("rate_limit.burst_size"),
			CleanupInterval: v.GetDuration("rate_limit.cleanup_interval"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Driver == DriverPostgres && c.Database.Password == "" && c.IsProduction() {
		return errors.New("database password is required in production")
	}

	if c.Auth.SeedAuthEnabled && c.Auth.SeedSecret == defaultSeedSecret && c.IsProduction() {
		return errors.New("seed secret must be set in production")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin <= 0 {
		return errors.New("rate limit requests per minute must be positive")
	}

	return nil
}

// GetDatabaseDSN returns the DSN for the configured driver: a libpq
// keyword string for postgres, the file path for sqlite.
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == DriverSQLite {
		return c.Database.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
