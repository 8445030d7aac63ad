package services

import (
	"context"
	"slices"
	"time"

	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskService interface {
	CreateTask(ctx context.Context, db *gorm.DB, task *models.Task) (*models.Task, error)
	GetTaskByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Task, error)
	GetTaskHistory(ctx context.Context, db *gorm.DB, id uuid.UUID) ([]models.ChangeEntry, error)
	ListTasks(ctx context.Context, db *gorm.DB, filter TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, db *gorm.DB, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, db *gorm.DB, id uuid.UUID) error
	SeedTasks(ctx context.Context, db *gorm.DB) (*SeedResult, error)
}

type TaskServiceImpl struct {
	repo   *repositories.TaskRepository
	seeder *Seeder
	now    func() time.Time
}

func NewTaskService(repo *repositories.TaskRepository, seeder *Seeder) *TaskServiceImpl {
	if seeder == nil {
		seeder = NewSeeder(repo, nil)
	}
	return &TaskServiceImpl{repo: repo, seeder: seeder, now: time.Now}
}

// WithClock replaces the time source used for validation and history
// timestamps.
func (s *TaskServiceImpl) WithClock(now func() time.Time) *TaskServiceImpl {
	s.now = now
	return s
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, db *gorm.DB, task *models.Task) (*models.Task, error) {
	if err := task.ValidateForCreate(s.now()); err != nil {
		return nil, err
	}
	task.DueDate = task.DueDate.UTC()
	if task.History == nil {
		task.History = []models.ChangeEntry{}
	}
	if err := s.repo.Create(ctx, db, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTaskByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	return s.repo.FindByID(ctx, db, id)
}

func (s *TaskServiceImpl) GetTaskHistory(ctx context.Context, db *gorm.DB, id uuid.UUID) ([]models.ChangeEntry, error) {
	task, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return task.History, nil
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, db *gorm.DB, filter TaskFilter) ([]models.Task, error) {
	return s.repo.Find(ctx, db, filter.Scope())
}

// UpdateTask validates the patch, runs it through ApplyUpdate and persists
// the result. A patch that changes nothing performs no write; one that only
// reorders the tags is written without a history entry.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, db *gorm.DB, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	now := s.now()

	patch.Normalize()
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		patch.DueDate = &due
	}
	if err := patch.Validate(now); err != nil {
		return nil, err
	}

	// Read and write are not serialized against concurrent updates of the
	// same task; the last writer wins on the scalar fields.
	task, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	storedTags := slices.Clone(task.Tags)
	changes, err := ApplyUpdate(task, patch, now)
	if err != nil {
		return nil, err
	}
	reordered := !slices.Equal(storedTags, task.Tags)
	if len(changes) == 0 && !reordered {
		return task, nil
	}

	if err := s.repo.Update(ctx, db, task, changes, reordered || changedField(changes, models.FieldTags)); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return s.repo.Delete(ctx, db, id)
}

func (s *TaskServiceImpl) SeedTasks(ctx context.Context, db *gorm.DB) (*SeedResult, error) {
	return s.seeder.Seed(ctx, db, s.now())
}
