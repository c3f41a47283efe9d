package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"task-tracking-client/internal/database"
	"task-tracking-client/internal/middleware"
	"task-tracking-client/internal/models"
	"task-tracking-client/internal/policy"
	"task-tracking-client/internal/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubTaskRequest represents the payload for creating or updating a subtask
type SubTaskRequest struct {
	Date        string            `json:"date" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Status      models.TaskStatus `json:"status"`
	HoursSpent  float64           `json:"hoursSpent"`
	Remarks     string            `json:"remarks"`
}

func (r SubTaskRequest) toInput() validation.SubTaskInput {
	return validation.SubTaskInput{
		Date:        r.Date,
		Description: r.Description,
		Status:      r.Status,
		HoursSpent:  strconv.FormatFloat(r.HoursSpent, 'f', -1, 64),
		Remarks:     r.Remarks,
	}
}

// AddSubTask handles POST /api/tasks/:id/subtasks
// Creates a daily work-log entry under a task. Managers are read-only on
// subtasks; only admins and the assigned staff member may write them.
func AddSubTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, task) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify subtasks of this task"})
		return
	}

	var req SubTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subTask, fieldErrs := validation.ValidateSubTask(req.toInput(), task, nil, time.Now())
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldErrs[0].Error(), "fields": fieldErrs})
		return
	}

	subTask.ID = fmt.Sprintf("subtask-%d", time.Now().UnixNano())
	subTask.TaskID = task.ID

	if err := database.GetDB().Create(&subTask).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subtask"})
		return
	}

	if err := persistDerivedState(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task progress"})
		return
	}

	enrichAssignee(task)
	broadcastTaskEvent("subtask_changed", task.ID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusCreated, gin.H{"subTask": subTask, "task": task})
}

// UpdateSubTask handles PUT /api/tasks/:id/subtasks/:subId
func UpdateSubTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	subTaskID := c.Param("subId")

	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, task) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify subtasks of this task"})
		return
	}

	var existing models.SubTask
	if err := database.GetDB().Where("id = ? AND task_id = ?", subTaskID, taskID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subtask"})
		}
		return
	}

	var req SubTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subTask, fieldErrs := validation.ValidateSubTask(req.toInput(), task, &existing, time.Now())
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldErrs[0].Error(), "fields": fieldErrs})
		return
	}

	if err := database.GetDB().Save(&subTask).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subtask"})
		return
	}

	if err := persistDerivedState(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task progress"})
		return
	}

	enrichAssignee(task)
	broadcastTaskEvent("subtask_changed", task.ID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusOK, gin.H{"subTask": subTask, "task": task})
}

// DeleteSubTask handles DELETE /api/tasks/:id/subtasks/:subId
func DeleteSubTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	subTaskID := c.Param("subId")

	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, task) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify subtasks of this task"})
		return
	}

	result := database.GetDB().Where("id = ? AND task_id = ?", subTaskID, taskID).Delete(&models.SubTask{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subtask"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		return
	}

	if err := persistDerivedState(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task progress"})
		return
	}

	enrichAssignee(task)
	broadcastTaskEvent("subtask_changed", task.ID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusOK, gin.H{"task": task})
}
