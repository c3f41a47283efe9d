package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/database"
	"task-tracking-client/internal/middleware"
	"task-tracking-client/internal/models"
	"task-tracking-client/internal/policy"
	"task-tracking-client/internal/progress"
	"task-tracking-client/internal/realtime"
	"task-tracking-client/internal/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assignedTo" binding:"required"`
	Company     string              `json:"company"`
	StartDate   string              `json:"startDate" binding:"required"`
	EndDate     string              `json:"endDate" binding:"required"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	AssignedTo  *string              `json:"assignedTo"`
	Company     *string              `json:"company"`
	StartDate   *string              `json:"startDate"`
	EndDate     *string              `json:"endDate"`
	Priority    *models.TaskPriority `json:"priority"`
	Status      *models.TaskStatus   `json:"status"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

func calculateEffortDays(startDateStr, endDateStr string) int {
	start, errStart := validation.ParseDate(startDateStr)
	end, errEnd := validation.ParseDate(endDateStr)
	if errStart != nil || errEnd != nil {
		// Fallback to minimum effort 1 when dates invalid/missing
		return 1
	}
	if end.Before(start) {
		start, end = end, start
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// enrichAssignee fills the embedded assignee object from the users table.
func enrichAssignee(task *models.Task) {
	task.AssignedTo = models.UserRef{ID: task.AssignedToID}
	if task.AssignedToID == "" {
		return
	}
	var u models.User
	if err := database.GetDB().Where("id = ?", task.AssignedToID).First(&u).Error; err == nil {
		task.AssignedTo.Name = u.Name
	}
}

// loadTask fetches a task with its subtasks, scoped for the actor: staff
// only see tasks assigned to them.
func loadTask(actor auth.Actor, taskID string) (*models.Task, error) {
	query := database.GetDB().Preload("SubTasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("date asc, created_at asc")
	}).Where("id = ?", taskID)
	if actor.Role == models.RoleStaff {
		query = query.Where("assigned_to_id = ?", actor.ID)
	}
	var task models.Task
	if err := query.First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// persistDerivedState recomputes and stores a task's progress/status after
// a subtask mutation; the stored values are the authoritative record.
func persistDerivedState(task *models.Task) error {
	var subTasks []models.SubTask
	if err := database.GetDB().
		Where("task_id = ?", task.ID).
		Order("date asc, created_at asc").
		Find(&subTasks).Error; err != nil {
		return err
	}
	task.SubTasks = subTasks
	progress.Recompute(task)
	return database.GetDB().Model(&models.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{"progress": task.Progress, "status": task.Status}).Error
}

// broadcastTaskEvent notifies the assignee's and the acting user's live
// sessions that the task changed.
func broadcastTaskEvent(eventType, taskID string, userIDs ...string) {
	realtime.GetHub().BroadcastEvent(realtime.Event{
		Type:    eventType,
		TaskID:  taskID,
		Version: 1,
	}, userIDs...)
}

/*
*
GetTasks handles GET /api/tasks
Returns a page of tasks scoped to the actor's role: staff see only tasks
assigned to them, managers and admins see everything.
Query params: page, limit, status, priority, assignedTo, search.
*/
func GetTasks(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	db := database.GetDB()
	query := db.Model(&models.Task{})

	if actor.Role == models.RoleStaff {
		query = query.Where("assigned_to_id = ?", actor.ID)
	} else if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		query = query.Where("assigned_to_id = ?", assignedTo)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
		return
	}

	var tasks []models.Task
	result := query.Session(&gorm.Session{}).
		Preload("SubTasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc, created_at asc")
		}).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&tasks)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	// Enrich assignee field for response
	var users []models.User
	if err := db.Find(&users).Error; err == nil {
		userByID := make(map[string]models.User, len(users))
		for _, u := range users {
			userByID[u.ID] = u
		}
		for i := range tasks {
			tasks[i].AssignedTo = models.UserRef{ID: tasks[i].AssignedToID}
			if u, ok := userByID[tasks[i].AssignedToID]; ok {
				tasks[i].AssignedTo.Name = u.Name
			}
		}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"page":  page,
		"pages": pages,
		"total": total,
	})
}

/*
*
CreateTask handles POST /api/tasks
Creates a task. Staff may not create tasks; they only work assigned ones.
*/
func CreateTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}
	if !policy.CanCreateTask(actor.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Staff cannot create tasks"})
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, fieldErrs := validation.ValidateTask(validation.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Company:     req.Company,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Priority:    req.Priority,
		Status:      req.Status,
	})
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldErrs[0].Error(), "fields": fieldErrs})
		return
	}

	// Generate task ID (simple format: task-{timestamp})
	task := normalized
	task.ID = fmt.Sprintf("task-%d", time.Now().UnixNano())
	task.Effort = calculateEffortDays(task.StartDate, task.EndDate)
	task.CreatedByID = actor.ID
	if task.CompanyID == "" {
		task.CompanyID = c.GetString("user_company")
	}

	if err := database.GetDB().Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	enrichAssignee(&task)
	broadcastTaskEvent("task_created", task.ID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// GetTaskByID handles GET /api/tasks/:id
func GetTaskByID(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return
	}

	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	enrichAssignee(task)
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// UpdateTask handles PUT /api/tasks/:id
// Applies a partial update; staff may only touch tasks assigned to them.
func UpdateTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return
	}

	existingTask, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	if !policy.CanEditTask(actor.Role, existingTask, actor.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to edit this task"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Update fields if provided
	if req.Title != nil {
		existingTask.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		existingTask.Description = *req.Description
	}
	if req.AssignedTo != nil {
		existingTask.AssignedToID = *req.AssignedTo
	}
	if req.Company != nil {
		existingTask.CompanyID = *req.Company
	}
	if req.StartDate != nil {
		existingTask.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		existingTask.EndDate = *req.EndDate
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
		existingTask.Priority = *req.Priority
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		existingTask.Status = *req.Status
	}

	// Date window must stay well-formed after a partial update
	if req.StartDate != nil || req.EndDate != nil {
		start, errStart := validation.ParseDate(existingTask.StartDate)
		end, errEnd := validation.ParseDate(existingTask.EndDate)
		if errStart != nil || errEnd != nil || end.Before(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endDate cannot be before startDate"})
			return
		}
		existingTask.Effort = calculateEffortDays(existingTask.StartDate, existingTask.EndDate)
	}

	if err := database.GetDB().Save(existingTask).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	enrichAssignee(existingTask)
	broadcastTaskEvent("task_updated", existingTask.ID, actor.ID, existingTask.AssignedToID)

	c.JSON(http.StatusOK, gin.H{"task": existingTask})
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
// Changes only the status; delayed/pending are explicit actor decisions.
func UpdateTaskStatus(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	if !policy.CanEditTask(actor.Role, task, actor.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to change this task's status"})
		return
	}

	task.Status = req.Status
	if err := database.GetDB().Model(task).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	enrichAssignee(task)
	broadcastTaskEvent("task_updated", task.ID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// DeleteTask handles DELETE /api/tasks/:id
// Deletes a task and cascades to its subtasks. Admin/manager only.
func DeleteTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}
	if !policy.CanDeleteTask(actor.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete tasks"})
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return
	}

	task, err := loadTask(actor, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	// Subtasks do not outlive their task
	if err := database.GetDB().Where("task_id = ?", taskID).Delete(&models.SubTask{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subtasks"})
		return
	}
	if err := database.GetDB().Delete(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	broadcastTaskEvent("task_deleted", taskID, actor.ID, task.AssignedToID)

	c.JSON(http.StatusOK, gin.H{})
}

// GetDashboardStats handles GET /api/tasks/dashboard/stats
// Returns task counts by status, scoped to the actor's role: staff see
// their own tasks, managers their company's, admins everything.
func GetDashboardStats(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	db := database.GetDB()
	query := db.Model(&models.Task{})
	switch actor.Role {
	case models.RoleStaff:
		query = query.Where("assigned_to_id = ?", actor.ID)
	case models.RoleManager:
		if company := c.GetString("user_company"); company != "" {
			query = query.Where("company_id = ?", company)
		}
	}

	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := query.
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	counts := map[string]int64{
		string(models.StatusPending):    0,
		string(models.StatusInProgress): 0,
		string(models.StatusCompleted):  0,
		string(models.StatusDelayed):    0,
	}
	var total int64
	for _, r := range rows {
		counts[r.Status] = r.Count
		total += r.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"role":       actor.Role,
		"pending":    counts[string(models.StatusPending)],
		"inProgress": counts[string(models.StatusInProgress)],
		"completed":  counts[string(models.StatusCompleted)],
		"delayed":    counts[string(models.StatusDelayed)],
		"total":      total,
	})
}
