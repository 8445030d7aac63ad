package repositories

import (
	"context"
	"errors"
	"fmt"

	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository holds no connection of its own; callers pass the *gorm.DB
// (or transaction) every operation runs against.
type TaskRepository struct{}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{}
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("TagRows", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (r *TaskRepository) Create(ctx context.Context, db *gorm.DB, task *models.Task) error {
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// CreateBatch inserts all tasks and their tags in one transaction.
func (r *TaskRepository) CreateBatch(ctx context.Context, db *gorm.DB, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert task batch: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := withChildren(db.WithContext(ctx)).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// Find lists tasks matching every scope.
func (r *TaskRepository) Find(ctx context.Context, db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Task, error) {
	tasks := []models.Task{}
	err := withChildren(db.WithContext(ctx).Model(&models.Task{})).Scopes(scopes...).Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// Update writes the scalar fields of task, replaces its tag rows when
// replaceTags is set and inserts the appended history entries. Existing
// history rows are never touched.
func (r *TaskRepository) Update(ctx context.Context, db *gorm.DB, task *models.Task, appended []models.ChangeEntry, replaceTags bool) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(task).
			Omit(clause.Associations).
			Select("title", "description", "status", "priority", "due_date", "updated_at").
			Updates(task)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrTaskNotFound
		}

		if replaceTags {
			if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskTag{}).Error; err != nil {
				return err
			}
			if rows := models.TagRowsFor(task); len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}

		if len(appended) > 0 {
			for i := range appended {
				appended[i].TaskID = task.ID
			}
			if err := tx.Create(&appended).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes the task with its tags and history. There is no soft delete.
// Child rows go first so the foreign keys on task_tags and task_history hold
// at every statement.
func (r *TaskRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.ChangeEntry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
