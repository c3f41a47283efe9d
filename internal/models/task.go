package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/gorm"
)

// TaskStatus represents the status of a task or subtask
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusDelayed    TaskStatus = "delayed"
)

// Valid reports whether the status is one of the four enumerated values.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelayed:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// Valid reports whether the priority is one of the enumerated values.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DateLayout is the calendar-date wire format for startDate, endDate and
// subtask dates. Time-of-day is never carried on these fields.
const DateLayout = "2006-01-02"

// UserRef identifies a task assignee. The server may send either a bare
// user id string or an embedded {id, name} object; both decode into this.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts "user-1" as well as {"id":"user-1","name":"..."}.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		u.ID = id
		u.Name = ""
		return nil
	}
	type alias UserRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = UserRef(a)
	return nil
}

// Task represents a unit of assigned work with a date window.
// Progress and status are derived from the subtask collection once
// subtasks exist; the server's copy is authoritative.
type Task struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	Title        string       `json:"title" gorm:"not null"`
	Description  string       `json:"description"`
	AssignedToID string       `json:"-" gorm:"column:assigned_to_id;index"`
	AssignedTo   UserRef      `json:"assignedTo" gorm:"-"`
	CompanyID    string       `json:"company" gorm:"column:company_id;index"`
	StartDate    string       `json:"startDate" gorm:"column:start_date"`
	EndDate      string       `json:"endDate" gorm:"column:end_date"`
	Priority     TaskPriority `json:"priority" gorm:"default:'medium'"`
	Status       TaskStatus   `json:"status" gorm:"not null;default:'pending'"`
	Progress     int          `json:"progress" gorm:"default:0"`
	Effort       int          `json:"effort" gorm:"default:1"`
	SubTasks     []SubTask    `json:"subTasks" gorm:"foreignKey:TaskID"`
	CreatedByID  string       `json:"-" gorm:"column:created_by_id;index"`
	gorm.Model
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// AssigneeID returns the assigned user's id. Tasks loaded from the database
// carry it in AssignedToID; tasks decoded off the wire only carry the
// embedded assignee object.
func (t *Task) AssigneeID() string {
	if t.AssignedToID != "" {
		return t.AssignedToID
	}
	return t.AssignedTo.ID
}

// SortSubTasks orders the subtask collection by date ascending,
// breaking ties by creation time so the order is stable.
func (t *Task) SortSubTasks() {
	sort.SliceStable(t.SubTasks, func(i, j int) bool {
		if t.SubTasks[i].Date != t.SubTasks[j].Date {
			return t.SubTasks[i].Date < t.SubTasks[j].Date
		}
		return t.SubTasks[i].CreatedAt.Before(t.SubTasks[j].CreatedAt)
	})
}

// FindSubTask returns a pointer to the subtask with the given id, or nil.
func (t *Task) FindSubTask(subTaskID string) *SubTask {
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == subTaskID {
			return &t.SubTasks[i]
		}
	}
	return nil
}

// SubTask is a dated entry recording daily progress against a Task.
type SubTask struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	TaskID      string     `json:"-" gorm:"column:task_id;index"`
	Date        string     `json:"date" gorm:"not null"`
	Description string     `json:"description" gorm:"not null"`
	Status      TaskStatus `json:"status" gorm:"default:'pending'"`
	HoursSpent  float64    `json:"hoursSpent" gorm:"column:hours_spent;default:0"`
	Remarks     string     `json:"remarks"`
	CompletedAt *time.Time `json:"completedAt,omitempty" gorm:"column:completed_at"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"column:created_at"`
}

// TableName specifies the table name for SubTask Model
func (SubTask) TableName() string {
	return "sub_tasks"
}
