package services

import (
	"strings"
	"testing"
	"time"

	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2030, 3, 10, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	pool, err := database.NewMemoryPool(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool.DB
}

func sampleTask(status models.TaskStatus, tags ...string) *models.Task {
	task := models.NewTaskFromInput("Sample task", "Some description", status, models.PriorityMedium, testNow.Add(24*time.Hour), tags)
	return task
}
