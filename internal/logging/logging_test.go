package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"tasktrack/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, config.LogConfig{Level: "info"}, true)

	log.Info("hello", "task", "abc")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "abc", line["task"])
}

func TestNewLogger_TextByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, config.LogConfig{Level: "warn"}, false)

	log.Info("dropped")
	log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestNewLogger_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, config.LogConfig{Format: "json"}, false)

	log.Info("x")

	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, logger.Info, GormLevel("debug"))
	assert.Equal(t, logger.Warn, GormLevel("info"))
	assert.Equal(t, logger.Warn, GormLevel("warn"))
	assert.Equal(t, logger.Error, GormLevel("error"))
}
