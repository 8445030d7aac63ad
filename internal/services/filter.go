package services

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"tasktrack/backend/internal/models"

	"gorm.io/gorm"
)

// TaskFilter is the parsed form of the list query. Every set field narrows
// the result; unset fields match everything.
type TaskFilter struct {
	Status    *models.TaskStatus
	Priority  *models.TaskPriority
	Tags      []string
	StartDate *time.Time
	EndDate   *time.Time
}

// BuildFilter reads status, priority, tags, startDate and endDate from q.
// Empty parameters count as absent.
func BuildFilter(q url.Values) (TaskFilter, error) {
	var f TaskFilter

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status := models.TaskStatus(v)
		if !status.IsValid() {
			return f, models.NewValidationError("status", fmt.Sprintf("%s is not a valid status", v))
		}
		f.Status = &status
	}

	if v := strings.TrimSpace(q.Get("priority")); v != "" {
		priority := models.TaskPriority(v)
		if !priority.IsValid() {
			return f, models.NewValidationError("priority", fmt.Sprintf("%s is not a valid priority", v))
		}
		f.Priority = &priority
	}

	if v := q.Get("tags"); strings.TrimSpace(v) != "" {
		f.Tags = models.NormalizeTags(strings.Split(v, ","))
	}

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		start, err := models.ParseDate(v)
		if err != nil {
			return f, models.NewValidationError("startDate", "Invalid startDate format")
		}
		f.StartDate = &start
	}

	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		end, err := models.ParseDate(v)
		if err != nil {
			return f, models.NewValidationError("endDate", "Invalid endDate format")
		}
		f.EndDate = &end
	}

	return f, nil
}

// Scope applies the filter to a task query and orders by due date.
func (f TaskFilter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Status != nil {
			db = db.Where("tasks.status = ?", string(*f.Status))
		}
		if f.Priority != nil {
			db = db.Where("tasks.priority = ?", string(*f.Priority))
		}
		if len(f.Tags) > 0 {
			tagged := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.TaskTag{}).
				Select("task_id").
				Where("tag IN ?", f.Tags)
			db = db.Where("tasks.id IN (?)", tagged)
		}
		if f.StartDate != nil {
			db = db.Where("tasks.due_date >= ?", *f.StartDate)
		}
		if f.EndDate != nil {
			db = db.Where("tasks.due_date <= ?", *f.EndDate)
		}
		return db.Order("tasks.due_date ASC").Order("tasks.created_at ASC")
	}
}

// CacheKey is a canonical representation: equal filters give equal keys.
func (f TaskFilter) CacheKey() string {
	parts := make([]string, 0, 5)
	if f.Status != nil {
		parts = append(parts, "status="+string(*f.Status))
	}
	if f.Priority != nil {
		parts = append(parts, "priority="+string(*f.Priority))
	}
	if len(f.Tags) > 0 {
		tags := append([]string(nil), f.Tags...)
		sort.Strings(tags)
		parts = append(parts, "tags="+strings.Join(tags, ","))
	}
	if f.StartDate != nil {
		parts = append(parts, "start="+f.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if f.EndDate != nil {
		parts = append(parts, "end="+f.EndDate.UTC().Format(time.RFC3339Nano))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "&")
}
