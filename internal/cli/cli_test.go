package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"tasktrack/backend/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "tasktrack.db"))
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "tasktrack 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Schema is up to date\n", out)

	_, err = run(t, "migrate")
	assert.NoError(t, err)
}

func TestSeedCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed", "--rand-seed", "7")
	require.NoError(t, err)
	assert.Equal(t, "Database seeded successfully with 25 tasks", strings.TrimSpace(out))

	_, err = run(t, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is not empty")
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)
	t.Setenv("SEED_SECRET", "cli-test-secret")

	out, err := run(t, "token", "--subject", "alice")
	require.NoError(t, err)

	claims := &middleware.ScopeClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("cli-test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, middleware.DefaultIssuer, claims.Issuer)
	assert.Equal(t, []string{middleware.ScopeSeed}, claims.Scopes)
}

func TestBadConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := run(t, "migrate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestCacheBackend(t *testing.T) {
	assert.Equal(t, "off", cacheBackend(false, true))
	assert.Equal(t, "memory+redis", cacheBackend(true, true))
	assert.Equal(t, "memory", cacheBackend(true, false))
}

func TestOpenCache(t *testing.T) {
	setupEnv(t)

	a, err := loadApp(&bytes.Buffer{})
	require.NoError(t, err)

	c := a.openCache()
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })
	assert.Equal(t, "memory", c.Stats()["backend"])

	a.config.Cache.Enabled = false
	assert.Nil(t, a.openCache())
}
