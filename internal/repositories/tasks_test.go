package repositories_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	pool, err := database.NewMemoryPool(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool.DB
}

func newTask(title string, due time.Time, tags ...string) *models.Task {
	return models.NewTaskFromInput(title, "desc", "", "", due.UTC(), tags)
}

var base = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

func TestCreateAndFindByID(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	task := newTask("First task", base, "b", "a", "b")
	require.NoError(t, repo.Create(ctx, db, task))
	require.NotEqual(t, uuid.Nil, task.ID)

	found, err := repo.FindByID(ctx, db, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "First task", found.Title)
	assert.Equal(t, models.StatusPending, found.Status)
	assert.Equal(t, []string{"b", "a"}, found.Tags)
	assert.Empty(t, found.History)
	assert.True(t, base.Equal(found.DueDate))
}

func TestFindByID_NotFound(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()

	_, err := repo.FindByID(context.Background(), db, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestCreateBatchAndCount(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	tasks := []*models.Task{
		newTask("Batch one", base, "x"),
		newTask("Batch two", base.Add(time.Hour), "y", "x"),
		newTask("Batch three", base.Add(2*time.Hour)),
	}
	require.NoError(t, repo.CreateBatch(ctx, db, tasks))

	count, err := repo.Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var tagRows int64
	require.NoError(t, db.Model(&models.TaskTag{}).Count(&tagRows).Error)
	assert.Equal(t, int64(3), tagRows)
}

func TestCreateBatch_Empty(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()

	assert.NoError(t, repo.CreateBatch(context.Background(), db, nil))
}

func TestFind_WithScope(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, db, newTask("Later", base.Add(48*time.Hour))))
	require.NoError(t, repo.Create(ctx, db, newTask("Sooner", base)))

	byDue := func(db *gorm.DB) *gorm.DB { return db.Order("due_date ASC") }
	tasks, err := repo.Find(ctx, db, byDue)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Sooner", tasks[0].Title)
	assert.Equal(t, []string{}, tasks[0].Tags)
}

func TestFind_EmptyStoreReturnsEmptySlice(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()

	tasks, err := repo.Find(context.Background(), db)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestUpdate_ScalarsTagsAndHistory(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	task := newTask("Original", base, "a", "b")
	require.NoError(t, repo.Create(ctx, db, task))

	loaded, err := repo.FindByID(ctx, db, task.ID)
	require.NoError(t, err)

	loaded.Title = "Renamed"
	loaded.Status = models.StatusInProgress
	loaded.Tags = []string{"c", "a"}
	entries := []models.ChangeEntry{
		{Field: models.FieldTitle, OldValue: "Original", NewValue: "Renamed", Timestamp: base},
		{Field: models.FieldTags, OldValue: []string{"a", "b"}, NewValue: []string{"c", "a"}, Timestamp: base},
	}
	require.NoError(t, repo.Update(ctx, db, loaded, entries, true))

	reloaded, err := repo.FindByID(ctx, db, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Title)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)
	assert.Equal(t, []string{"c", "a"}, reloaded.Tags)
	require.Len(t, reloaded.History, 2)
	assert.Equal(t, models.FieldTitle, reloaded.History[0].Field)
	assert.Equal(t, "Original", reloaded.History[0].OldValue)
	assert.Equal(t, models.FieldTags, reloaded.History[1].Field)
	assert.Equal(t, []interface{}{"c", "a"}, reloaded.History[1].NewValue)
}

func TestUpdate_HistoryOnlyGrows(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	task := newTask("Growing", base)
	require.NoError(t, repo.Create(ctx, db, task))

	for i, title := range []string{"Growing 1", "Growing 2", "Growing 3"} {
		loaded, err := repo.FindByID(ctx, db, task.ID)
		require.NoError(t, err)
		entry := models.ChangeEntry{Field: models.FieldTitle, OldValue: loaded.Title, NewValue: title, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		loaded.Title = title
		require.NoError(t, repo.Update(ctx, db, loaded, []models.ChangeEntry{entry}, false))
	}

	reloaded, err := repo.FindByID(ctx, db, task.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.History, 3)
	for i, entry := range reloaded.History {
		assert.Equal(t, base.Add(time.Duration(i)*time.Minute).Unix(), entry.Timestamp.Unix())
	}
	assert.Equal(t, "Growing", reloaded.History[0].OldValue)
	assert.Equal(t, "Growing 3", reloaded.History[2].NewValue)
}

func TestUpdate_MissingTask(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()

	ghost := newTask("Ghost", base)
	ghost.ID = uuid.Must(uuid.NewV4())

	err := repo.Update(context.Background(), db, ghost, nil, false)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestDelete_RemovesChildren(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	task := newTask("Doomed", base, "a", "b")
	require.NoError(t, repo.Create(ctx, db, task))
	loaded, err := repo.FindByID(ctx, db, task.ID)
	require.NoError(t, err)
	loaded.Title = "Doomed twice"
	require.NoError(t, repo.Update(ctx, db, loaded, []models.ChangeEntry{{Field: models.FieldTitle, OldValue: "Doomed", NewValue: "Doomed twice", Timestamp: base}}, false))

	require.NoError(t, repo.Delete(ctx, db, task.ID))

	_, err = repo.FindByID(ctx, db, task.ID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)

	var tags, history int64
	require.NoError(t, db.Model(&models.TaskTag{}).Where("task_id = ?", task.ID).Count(&tags).Error)
	require.NoError(t, db.Model(&models.ChangeEntry{}).Where("task_id = ?", task.ID).Count(&history).Error)
	assert.Zero(t, tags)
	assert.Zero(t, history)

	assert.ErrorIs(t, repo.Delete(ctx, db, task.ID), models.ErrTaskNotFound)
}

func TestDuplicateTagRowsRejected(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewTaskRepository()
	ctx := context.Background()

	task := newTask("Unique tags", base, "a")
	require.NoError(t, repo.Create(ctx, db, task))

	err := db.Create(&models.TaskTag{TaskID: task.ID, Tag: "a", Position: 5}).Error
	assert.Error(t, err)
}
