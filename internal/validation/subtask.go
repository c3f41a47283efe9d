// Package validation normalizes raw task and subtask input before it is
// sent anywhere. Output is side-effect free; callers own persistence.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"task-tracking-client/internal/models"
)

// ErrorCode classifies a single field-level validation failure.
type ErrorCode string

const (
	CodeMissingField   ErrorCode = "MissingField"
	CodeInvalidDate    ErrorCode = "InvalidDate"
	CodeDateOutOfRange ErrorCode = "DateOutOfRange"
	CodeInvalidHours   ErrorCode = "InvalidHours"
	CodeInvalidStatus  ErrorCode = "InvalidStatus"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string    `json:"field"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubTaskInput is the raw, form-shaped payload for creating or updating a
// subtask. HoursSpent arrives as text and is coerced; empty means 0.
type SubTaskInput struct {
	Date        string
	Description string
	Status      models.TaskStatus
	HoursSpent  string
	Remarks     string
}

// ParseDate parses a calendar date, discarding any time-of-day component.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ValidateSubTask checks the input against its parent task's date window
// and returns the normalized subtask. prev is the stored subtask for
// updates and nil for creates; it drives the completedAt transitions:
// entering completed stamps now, leaving completed clears the stamp, and
// staying completed keeps the original stamp so re-submitting the same
// payload is idempotent.
func ValidateSubTask(in SubTaskInput, parent *models.Task, prev *models.SubTask, now time.Time) (models.SubTask, []FieldError) {
	var errs []FieldError

	date := strings.TrimSpace(in.Date)
	var day time.Time
	if date == "" {
		errs = append(errs, FieldError{Field: "date", Code: CodeMissingField, Message: "date is required"})
	} else if d, err := ParseDate(date); err != nil {
		errs = append(errs, FieldError{Field: "date", Code: CodeInvalidDate, Message: "date must be a valid calendar date"})
	} else {
		day = d
		date = d.Format(models.DateLayout)
		if start, err := ParseDate(parent.StartDate); err == nil && day.Before(start) {
			errs = append(errs, FieldError{Field: "date", Code: CodeDateOutOfRange, Message: "date cannot be before task start date"})
		}
		if end, err := ParseDate(parent.EndDate); err == nil && day.After(end) {
			errs = append(errs, FieldError{Field: "date", Code: CodeDateOutOfRange, Message: "date cannot be after task end date"})
		}
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		errs = append(errs, FieldError{Field: "description", Code: CodeMissingField, Message: "description is required"})
	}

	hours := 0.0
	if raw := strings.TrimSpace(in.HoursSpent); raw != "" {
		h, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: "hoursSpent", Code: CodeInvalidHours, Message: "hoursSpent must be a number"})
		} else if h < 0 {
			errs = append(errs, FieldError{Field: "hoursSpent", Code: CodeInvalidHours, Message: "hoursSpent cannot be negative"})
		} else {
			hours = h
		}
	}

	status := in.Status
	if status == "" {
		status = models.StatusPending
	} else if !status.Valid() {
		errs = append(errs, FieldError{Field: "status", Code: CodeInvalidStatus, Message: fmt.Sprintf("status %q is not a valid status", in.Status)})
	}

	if len(errs) > 0 {
		return models.SubTask{}, errs
	}

	out := models.SubTask{
		Date:        date,
		Description: description,
		Status:      status,
		HoursSpent:  hours,
		Remarks:     strings.TrimSpace(in.Remarks),
		CreatedAt:   now,
	}
	if prev != nil {
		out.ID = prev.ID
		out.TaskID = prev.TaskID
		out.CreatedAt = prev.CreatedAt
	}

	prevStatus := models.StatusPending
	if prev != nil {
		prevStatus = prev.Status
	}
	switch {
	case status == models.StatusCompleted && prevStatus == models.StatusCompleted:
		out.CompletedAt = prev.CompletedAt
	case status == models.StatusCompleted:
		ts := now
		out.CompletedAt = &ts
	default:
		out.CompletedAt = nil
	}

	return out, nil
}
