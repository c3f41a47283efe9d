package validation

import (
	"strings"
	"time"

	"task-tracking-client/internal/models"
)

// TaskInput is the raw payload for creating or fully updating a task.
type TaskInput struct {
	Title       string
	Description string
	AssignedTo  string
	Company     string
	StartDate   string
	EndDate     string
	Priority    models.TaskPriority
	Status      models.TaskStatus
}

// ValidateTask checks a task payload: required fields, parsable dates,
// endDate on or after startDate, known enum values. Defaults are filled
// the way the server would (medium priority, pending status).
func ValidateTask(in TaskInput) (models.Task, []FieldError) {
	var errs []FieldError

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs = append(errs, FieldError{Field: "title", Code: CodeMissingField, Message: "title is required"})
	}
	if strings.TrimSpace(in.AssignedTo) == "" {
		errs = append(errs, FieldError{Field: "assignedTo", Code: CodeMissingField, Message: "assignedTo is required"})
	}

	start, startOK := parseRequiredDate(in.StartDate, "startDate", &errs)
	end, endOK := parseRequiredDate(in.EndDate, "endDate", &errs)
	if startOK && endOK && end.Before(start) {
		errs = append(errs, FieldError{Field: "endDate", Code: CodeDateOutOfRange, Message: "endDate cannot be before startDate"})
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	} else if !priority.Valid() {
		errs = append(errs, FieldError{Field: "priority", Code: CodeInvalidStatus, Message: "unknown priority"})
	}

	status := in.Status
	if status == "" {
		status = models.StatusPending
	} else if !status.Valid() {
		errs = append(errs, FieldError{Field: "status", Code: CodeInvalidStatus, Message: "unknown status"})
	}

	if len(errs) > 0 {
		return models.Task{}, errs
	}

	return models.Task{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		AssignedToID: strings.TrimSpace(in.AssignedTo),
		AssignedTo:   models.UserRef{ID: strings.TrimSpace(in.AssignedTo)},
		CompanyID:    strings.TrimSpace(in.Company),
		StartDate:    start.Format(models.DateLayout),
		EndDate:      end.Format(models.DateLayout),
		Priority:     priority,
		Status:       status,
	}, nil
}

func parseRequiredDate(raw, field string, errs *[]FieldError) (t time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*errs = append(*errs, FieldError{Field: field, Code: CodeMissingField, Message: field + " is required"})
		return t, false
	}
	d, err := ParseDate(raw)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Code: CodeInvalidDate, Message: field + " must be a valid calendar date"})
		return t, false
	}
	return d, true
}
