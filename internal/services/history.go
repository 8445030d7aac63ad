package services

import (
	"slices"
	"time"

	"tasktrack/backend/internal/models"
)

// ApplyUpdate merges patch into task and appends one history entry per field
// whose value actually changes. Fields are visited in models.PatchFields
// order, which is also the order of the appended entries. The returned slice
// holds only the new entries. On error task is left untouched.
func ApplyUpdate(task *models.Task, patch models.TaskPatch, now time.Time) ([]models.ChangeEntry, error) {
	if task.Status == models.StatusPending && patch.Status != nil && *patch.Status == models.StatusCompleted {
		return nil, models.ErrInvalidTransition
	}

	var changes []models.ChangeEntry
	record := func(field string, oldValue, newValue any) {
		changes = append(changes, models.ChangeEntry{
			TaskID:    task.ID,
			Field:     field,
			OldValue:  oldValue,
			NewValue:  newValue,
			Timestamp: now,
		})
	}

	for _, field := range models.PatchFields {
		switch field {
		case models.FieldTitle:
			if patch.Title != nil && *patch.Title != task.Title {
				record(field, task.Title, *patch.Title)
				task.Title = *patch.Title
			}
		case models.FieldDescription:
			if patch.Description != nil && *patch.Description != task.Description {
				record(field, task.Description, *patch.Description)
				task.Description = *patch.Description
			}
		case models.FieldStatus:
			if patch.Status != nil && *patch.Status != task.Status {
				record(field, string(task.Status), string(*patch.Status))
				task.Status = *patch.Status
			}
		case models.FieldPriority:
			if patch.Priority != nil && *patch.Priority != task.Priority {
				record(field, string(task.Priority), string(*patch.Priority))
				task.Priority = *patch.Priority
			}
		case models.FieldDueDate:
			if patch.DueDate != nil && !patch.DueDate.Equal(task.DueDate) {
				record(field, task.DueDate, *patch.DueDate)
				task.DueDate = *patch.DueDate
			}
		case models.FieldTags:
			if patch.Tags != nil {
				newTags := models.NormalizeTags(*patch.Tags)
				if !models.SameTags(task.Tags, newTags) {
					record(field, models.NormalizeTags(task.Tags), slices.Clone(newTags))
				}
				// a reordered but equal set is merged without an entry
				task.Tags = newTags
			}
		}
	}

	task.History = append(task.History, changes...)
	return changes, nil
}

func changedField(changes []models.ChangeEntry, field string) bool {
	for _, change := range changes {
		if change.Field == field {
			return true
		}
	}
	return false
}
