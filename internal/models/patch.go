package models

import (
	"fmt"
	"strings"
	"time"
)

// Updatable field names, in the order a patch is applied and its history
// entries are appended.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "dueDate"
	FieldTags        = "tags"
)

var PatchFields = []string{FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldDueDate, FieldTags}

// TaskPatch is a partial update. A nil field is absent from the request and
// leaves the stored value alone.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDate     *time.Time
	Tags        *[]string
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && p.Tags == nil
}

// Normalize trims text fields and cleans the tag list in place.
func (p *TaskPatch) Normalize() {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		p.Description = &description
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
}

// Validate checks every present field. now is the reference for the
// due date, which must lie strictly after it.
func (p TaskPatch) Validate(now time.Time) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.IsValid() {
		return NewValidationError(FieldStatus, fmt.Sprintf("%s is not a valid status", *p.Status))
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return NewValidationError(FieldPriority, fmt.Sprintf("%s is not a valid priority", *p.Priority))
	}
	if p.DueDate != nil {
		if err := validateDueDate(*p.DueDate, now); err != nil {
			return err
		}
	}
	return nil
}

// NewTaskFromInput builds a task ready to be created, applying the status
// and priority defaults.
func NewTaskFromInput(title, description string, status TaskStatus, priority TaskPriority, dueDate time.Time, tags []string) *Task {
	if status == "" {
		status = StatusPending
	}
	if priority == "" {
		priority = PriorityMedium
	}
	return &Task{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        NormalizeTags(tags),
		History:     []ChangeEntry{},
	}
}

// ValidateForCreate checks a task that is about to be inserted.
func (t *Task) ValidateForCreate(now time.Time) error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if !t.Status.IsValid() {
		return NewValidationError(FieldStatus, fmt.Sprintf("%s is not a valid status", t.Status))
	}
	if !t.Priority.IsValid() {
		return NewValidationError(FieldPriority, fmt.Sprintf("%s is not a valid priority", t.Priority))
	}
	if t.DueDate.IsZero() {
		return NewValidationError(FieldDueDate, "Due date is required")
	}
	return validateDueDate(t.DueDate, now)
}

func validateTitle(title string) error {
	if title == "" {
		return NewValidationError(FieldTitle, "Title is required")
	}
	if len([]rune(title)) < TitleMinLength {
		return NewValidationError(FieldTitle, "Title must be at least 3 characters long")
	}
	return nil
}

func validateDescription(description string) error {
	if len([]rune(description)) > DescriptionMaxLength {
		return NewValidationError(FieldDescription, "Description cannot exceed 500 characters")
	}
	return nil
}

func validateDueDate(due, now time.Time) error {
	if !due.After(now) {
		return NewValidationError(FieldDueDate, "Due date must be in the future")
	}
	return nil
}
