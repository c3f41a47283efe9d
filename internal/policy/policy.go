// Package policy holds the role-based authorization rules for task and
// subtask mutations. All functions are pure: unauthorized calls return
// false and it is the caller's job to turn that into a failure.
package policy

import (
	"task-tracking-client/internal/models"
)

// CanCreateTask reports whether the role may create tasks.
// Staff never create tasks; they only work the ones assigned to them.
func CanCreateTask(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanEditTask reports whether the actor may edit the given task,
// including direct status changes. Staff may only touch tasks assigned
// to them.
func CanEditTask(role models.Role, task *models.Task, actorID string) bool {
	switch role {
	case models.RoleAdmin, models.RoleManager:
		return true
	case models.RoleStaff:
		return task != nil && task.AssigneeID() == actorID
	}
	return false
}

// CanDeleteTask reports whether the role may delete tasks.
func CanDeleteTask(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanMutateSubTask reports whether the actor may create, update or delete
// subtasks under the given task. Subtask entries are the assignee's own
// daily work log, so managers are read-only here even though they hold
// task-level edit rights.
func CanMutateSubTask(role models.Role, actorID string, task *models.Task) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleStaff:
		return task != nil && task.AssigneeID() == actorID
	}
	return false
}
