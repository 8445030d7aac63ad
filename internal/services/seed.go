package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/repositories"

	"gorm.io/gorm"
)

const (
	SeedTaskCount  = 25
	seedWindow     = 30 * 24 * time.Hour
	seedMinLeadIn  = time.Minute
	seedMaxTagPick = 4

	// seedLockKey names the Postgres advisory lock held while seeding.
	seedLockKey = 0x7461736b73656564
)

var ErrStoreNotEmpty = errors.New("database is not empty, seeding is only allowed on an empty database")

var seedTitles = [SeedTaskCount]string{
	"Implement user authentication",
	"Design database schema",
	"Create API endpoints",
	"Write unit tests",
	"Fix UI bugs",
	"Optimize performance",
	"Add error handling",
	"Update documentation",
	"Implement search feature",
	"Add data validation",
	"Create admin dashboard",
	"Implement file upload",
	"Add email notifications",
	"Create user profile page",
	"Implement real-time updates",
	"Add payment integration",
	"Create reporting system",
	"Implement caching",
	"Add analytics tracking",
	"Create backup system",
	"Implement security features",
	"Add multi-language support",
	"Create mobile responsive design",
	"Implement data export",
	"Add user roles and permissions",
}

var seedTags = []string{
	"Frontend", "Backend", "API", "Database", "Testing",
	"Security", "Performance", "UI/UX", "DevOps", "Documentation",
}

type SeedResult struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

type Seeder struct {
	repo *repositories.TaskRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeder uses rng for every random choice; nil seeds from the clock.
func NewSeeder(repo *repositories.TaskRepository, rng *rand.Rand) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Seeder{repo: repo, rng: rng}
}

// Generate builds the sample batch without touching the store.
func (s *Seeder) Generate(now time.Time) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.UTC()
	tasks := make([]*models.Task, 0, SeedTaskCount)
	for _, title := range seedTitles {
		offset := seedMinLeadIn + time.Duration(s.rng.Int63n(int64(seedWindow-seedMinLeadIn)))

		picks := s.rng.Intn(seedMaxTagPick) + 1
		tags := make([]string, 0, picks)
		for i := 0; i < picks; i++ {
			tags = append(tags, seedTags[s.rng.Intn(len(seedTags))])
		}

		tasks = append(tasks, models.NewTaskFromInput(
			title,
			fmt.Sprintf("Description for %s", title),
			models.TaskStatuses[s.rng.Intn(len(models.TaskStatuses))],
			models.TaskPriorities[s.rng.Intn(len(models.TaskPriorities))],
			now.Add(offset),
			tags,
		))
	}
	return tasks
}

// lockSeed serializes concurrent seeds on Postgres, where READ COMMITTED
// would let two transactions both see an empty table. The lock is released
// at commit or rollback. SQLite already serializes write transactions.
func lockSeed(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(seedLockKey)).Error; err != nil {
		return fmt.Errorf("failed to take seed lock: %w", err)
	}
	return nil
}

// Seed inserts the sample batch when the task table is empty. The emptiness
// check and the insert share one transaction.
func (s *Seeder) Seed(ctx context.Context, db *gorm.DB, now time.Time) (*SeedResult, error) {
	var inserted int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSeed(tx); err != nil {
			return err
		}
		count, err := s.repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrStoreNotEmpty
		}

		tasks := s.Generate(now)
		if err := s.repo.CreateBatch(ctx, tx, tasks); err != nil {
			return err
		}
		inserted = len(tasks)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStoreNotEmpty) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	return &SeedResult{
		Message:  fmt.Sprintf("Database seeded successfully with %d tasks", inserted),
		Inserted: inserted,
	}, nil
}
