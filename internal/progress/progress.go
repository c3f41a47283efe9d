// Package progress derives a task's aggregate progress and status from its
// subtask collection. The same rules run on the client (optimistic
// prediction) and on the reference server (authoritative record).
package progress

import (
	"math"

	"task-tracking-client/internal/models"
)

// Calculate returns the completion percentage of a subtask collection:
// round(100 * completed / total), or 0 when there are no subtasks.
func Calculate(subTasks []models.SubTask) int {
	if len(subTasks) == 0 {
		return 0
	}
	completed := 0
	for i := range subTasks {
		if subTasks[i].Status == models.StatusCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(subTasks))))
}

// Recompute refreshes task.Progress from the subtask collection and applies
// the status transition rule:
//
//   - progress 100 forces status completed
//   - progress above 0 moves a pending task to in-progress
//   - a completed status that no longer matches progress 100 is stale
//     derived state and falls back to in-progress
//   - anything else (delayed, or an explicitly set status) is preserved
//
// Delayed is never derived; only an actor sets or clears it.
func Recompute(task *models.Task) {
	task.Progress = Calculate(task.SubTasks)

	switch {
	case task.Progress == 100:
		task.Status = models.StatusCompleted
	case task.Progress > 0 && task.Status == models.StatusPending:
		task.Status = models.StatusInProgress
	case task.Status == models.StatusCompleted:
		// progress dropped below 100, e.g. a completed subtask was
		// deleted or reopened; completed may not be left stale
		task.Status = models.StatusInProgress
	}
}
