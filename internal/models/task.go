package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// TaskStatuses is ordered: a task moves Pending -> In Progress -> Completed.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s TaskStatus) IsValid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) IsValid() bool {
	for _, v := range TaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

const (
	TitleMinLength       = 3
	DescriptionMaxLength = 500
)

type Task struct {
	ID          uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description"`
	Status      TaskStatus    `json:"status" gorm:"not null;index"`
	Priority    TaskPriority  `json:"priority" gorm:"not null;index"`
	DueDate     time.Time     `json:"dueDate" gorm:"not null;index"`
	Tags        []string      `json:"tags" gorm:"-"`
	TagRows     []TaskTag     `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	History     []ChangeEntry `json:"history" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TaskTag is one label of a task. The composite key keeps a tag from being
// stored twice for the same task.
type TaskTag struct {
	TaskID   uuid.UUID `json:"-" gorm:"primaryKey;type:uuid"`
	Tag      string    `json:"tag" gorm:"primaryKey;size:64;index"`
	Position int       `json:"-" gorm:"not null"`
}

func (TaskTag) TableName() string {
	return "task_tags"
}

// ChangeEntry records one field mutation. Entries are only ever inserted.
type ChangeEntry struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	TaskID    uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Field     string    `json:"field" gorm:"not null"`
	OldValue  any       `json:"oldValue" gorm:"type:text;serializer:json"`
	NewValue  any       `json:"newValue" gorm:"type:text;serializer:json"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

func (ChangeEntry) TableName() string {
	return "task_history"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	t.TagRows = tagRows(t.ID, t.Tags)
	return nil
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.Tags = NormalizeTags(t.Tags)
	return nil
}

func (t *Task) AfterFind(tx *gorm.DB) error {
	if t.TagRows == nil {
		return nil
	}
	t.Tags = make([]string, 0, len(t.TagRows))
	for _, row := range t.TagRows {
		t.Tags = append(t.Tags, row.Tag)
	}
	return nil
}

// NormalizeTags trims every label, drops empty ones and removes duplicates,
// keeping the first occurrence. It never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SameTags reports whether a and b hold the same set of labels.
func SameTags(a, b []string) bool {
	a, b = NormalizeTags(a), NormalizeTags(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}
	for _, tag := range b {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}

func TagRowsFor(t *Task) []TaskTag {
	return tagRows(t.ID, NormalizeTags(t.Tags))
}

func tagRows(taskID uuid.UUID, tags []string) []TaskTag {
	tags = NormalizeTags(tags)
	rows := make([]TaskTag, 0, len(tags))
	for i, tag := range tags {
		rows = append(rows, TaskTag{TaskID: taskID, Tag: tag, Position: i})
	}
	return rows
}
