// Package coordinator is the single entry point for every task and subtask
// state change. Each operation authorizes the actor, validates the payload,
// performs the remote call, and only then touches the task store, so a
// failed attempt always leaves the cache exactly as it was.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"task-tracking-client/internal/apiclient"
	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/cache"
	"task-tracking-client/internal/models"
	"task-tracking-client/internal/policy"
	"task-tracking-client/internal/progress"
	"task-tracking-client/internal/store"
	"task-tracking-client/internal/validation"
)

const statsCacheTTL = 30 * time.Second

// Coordinator mediates all task/subtask mutations between callers, the
// remote API and the local store.
type Coordinator struct {
	client *apiclient.Client
	tasks  *store.TaskStore
	stats  *cache.SimpleCache[string, json.RawMessage]
	now    func() time.Time
}

// New creates a coordinator with an empty task store.
func New(client *apiclient.Client) *Coordinator {
	return &Coordinator{
		client: client,
		tasks:  store.NewTaskStore(),
		stats:  cache.NewSimpleCache[string, json.RawMessage](),
		now:    time.Now,
	}
}

// Tasks exposes the store for read-only snapshot access by presentation
// layers. Mutations go through the coordinator only.
func (c *Coordinator) Tasks() *store.TaskStore {
	return c.tasks
}

// remoteErr normalizes any transport or server failure into a tagged
// RemoteError result.
func remoteErr(err error) *OpError {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return &OpError{Kind: KindRemoteError, Message: apiErr.Message, StatusCode: apiErr.StatusCode}
	}
	return &OpError{Kind: KindRemoteError, Message: err.Error()}
}

// RefreshTasks fetches a task list page from the server and replaces the
// store's contents with the authoritative result.
func (c *Coordinator) RefreshTasks(ctx context.Context, filters apiclient.TaskFilters) ([]models.Task, error) {
	page, err := c.client.ListTasks(ctx, filters)
	if err != nil {
		return nil, remoteErr(err)
	}
	for i := range page.Tasks {
		page.Tasks[i].SortSubTasks()
	}
	c.tasks.ReplaceAll(page.Tasks, page.Page, page.Pages, page.Total)
	return c.tasks.Snapshot(), nil
}

// RefreshTask re-fetches one task and commits the server's authoritative
// copy, reconciling any locally derived progress/status.
func (c *Coordinator) RefreshTask(ctx context.Context, id string) (models.Task, error) {
	task, err := c.client.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, remoteErr(err)
	}
	task.SortSubTasks()
	c.tasks.Commit(c.tasks.Begin(task.ID), task)
	return task, nil
}

// CreateTask creates a task on behalf of the actor. Staff may not create
// tasks.
func (c *Coordinator) CreateTask(ctx context.Context, actor auth.Actor, in validation.TaskInput) (models.Task, error) {
	if !policy.CanCreateTask(actor.Role) {
		return models.Task{}, unauthorized("create tasks")
	}
	normalized, fieldErrs := validation.ValidateTask(in)
	if len(fieldErrs) > 0 {
		return models.Task{}, validationFailed(fieldErrs)
	}
	created, err := c.client.CreateTask(ctx, apiclient.CreateTaskRequest{
		Title:       normalized.Title,
		Description: normalized.Description,
		AssignedTo:  normalized.AssignedToID,
		Company:     normalized.CompanyID,
		StartDate:   normalized.StartDate,
		EndDate:     normalized.EndDate,
		Priority:    normalized.Priority,
		Status:      normalized.Status,
	})
	if err != nil {
		return models.Task{}, remoteErr(err)
	}
	c.tasks.Commit(c.tasks.Begin(created.ID), created)
	return created, nil
}

// UpdateTask applies a partial update to a cached task.
func (c *Coordinator) UpdateTask(ctx context.Context, actor auth.Actor, taskID string, req apiclient.UpdateTaskRequest) (models.Task, error) {
	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Task{}, notFound("task", taskID)
	}
	if !policy.CanEditTask(actor.Role, &task, actor.ID) {
		return models.Task{}, unauthorized("edit this task")
	}
	if req.Status != nil && !req.Status.Valid() {
		return models.Task{}, validationFailed([]validation.FieldError{{
			Field: "status", Code: validation.CodeInvalidStatus, Message: "unknown status",
		}})
	}

	ticket := c.tasks.Begin(taskID)
	updated, err := c.client.UpdateTask(ctx, taskID, req)
	if err != nil {
		return models.Task{}, remoteErr(err)
	}
	updated.SortSubTasks()
	c.tasks.Commit(ticket, updated)
	return updated, nil
}

// UpdateTaskStatus changes only the status of a cached task. Delayed and
// pending are explicit actor decisions; completed/in-progress normally come
// from subtask recomputation but may be set directly on subtask-less tasks.
func (c *Coordinator) UpdateTaskStatus(ctx context.Context, actor auth.Actor, taskID string, status models.TaskStatus) (models.Task, error) {
	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Task{}, notFound("task", taskID)
	}
	if !policy.CanEditTask(actor.Role, &task, actor.ID) {
		return models.Task{}, unauthorized("change this task's status")
	}
	if !status.Valid() {
		return models.Task{}, validationFailed([]validation.FieldError{{
			Field: "status", Code: validation.CodeInvalidStatus, Message: "unknown status",
		}})
	}

	ticket := c.tasks.Begin(taskID)
	updated, err := c.client.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return models.Task{}, remoteErr(err)
	}
	updated.SortSubTasks()
	c.tasks.Commit(ticket, updated)
	return updated, nil
}

// DeleteTask deletes a task and drops it from the store. Subtasks never
// outlive their task; the server cascades the delete.
func (c *Coordinator) DeleteTask(ctx context.Context, actor auth.Actor, taskID string) error {
	if _, ok := c.tasks.Get(taskID); !ok {
		return notFound("task", taskID)
	}
	if !policy.CanDeleteTask(actor.Role) {
		return unauthorized("delete tasks")
	}

	ticket := c.tasks.Begin(taskID)
	if err := c.client.DeleteTask(ctx, taskID); err != nil {
		return remoteErr(err)
	}
	c.tasks.Remove(ticket, taskID)
	return nil
}

// AddSubTask validates and creates a subtask, applies the result to the
// cached parent with freshly derived progress/status, then reconciles with
// the server's authoritative task.
func (c *Coordinator) AddSubTask(ctx context.Context, actor auth.Actor, taskID string, in validation.SubTaskInput) (models.Task, error) {
	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Task{}, notFound("task", taskID)
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, &task) {
		return models.Task{}, unauthorized("add subtasks to this task")
	}
	normalized, fieldErrs := validation.ValidateSubTask(in, &task, nil, c.now())
	if len(fieldErrs) > 0 {
		return models.Task{}, validationFailed(fieldErrs)
	}

	ticket := c.tasks.Begin(taskID)
	created, err := c.client.AddSubTask(ctx, taskID, subTaskRequest(normalized))
	if err != nil {
		return models.Task{}, remoteErr(err)
	}

	task.SubTasks = append(task.SubTasks, created)
	task.SortSubTasks()
	progress.Recompute(&task)
	c.tasks.Commit(ticket, task)

	return c.reconcile(ctx, task)
}

// UpdateSubTask validates and updates a subtask, re-derives the parent's
// progress/status locally, then reconciles with the server.
func (c *Coordinator) UpdateSubTask(ctx context.Context, actor auth.Actor, taskID, subTaskID string, in validation.SubTaskInput) (models.Task, error) {
	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Task{}, notFound("task", taskID)
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, &task) {
		return models.Task{}, unauthorized("edit subtasks of this task")
	}
	prev := task.FindSubTask(subTaskID)
	if prev == nil {
		return models.Task{}, notFound("subtask", subTaskID)
	}
	normalized, fieldErrs := validation.ValidateSubTask(in, &task, prev, c.now())
	if len(fieldErrs) > 0 {
		return models.Task{}, validationFailed(fieldErrs)
	}

	ticket := c.tasks.Begin(taskID)
	updated, err := c.client.UpdateSubTask(ctx, taskID, subTaskID, subTaskRequest(normalized))
	if err != nil {
		return models.Task{}, remoteErr(err)
	}

	*prev = updated
	task.SortSubTasks()
	progress.Recompute(&task)
	c.tasks.Commit(ticket, task)

	return c.reconcile(ctx, task)
}

// DeleteSubTask removes a subtask, re-derives the parent's progress/status
// locally, then reconciles with the server.
func (c *Coordinator) DeleteSubTask(ctx context.Context, actor auth.Actor, taskID, subTaskID string) (models.Task, error) {
	task, ok := c.tasks.Get(taskID)
	if !ok {
		return models.Task{}, notFound("task", taskID)
	}
	if !policy.CanMutateSubTask(actor.Role, actor.ID, &task) {
		return models.Task{}, unauthorized("delete subtasks of this task")
	}
	if task.FindSubTask(subTaskID) == nil {
		return models.Task{}, notFound("subtask", subTaskID)
	}

	ticket := c.tasks.Begin(taskID)
	if err := c.client.DeleteSubTask(ctx, taskID, subTaskID); err != nil {
		return models.Task{}, remoteErr(err)
	}

	kept := task.SubTasks[:0:0]
	for _, st := range task.SubTasks {
		if st.ID != subTaskID {
			kept = append(kept, st)
		}
	}
	task.SubTasks = kept
	progress.Recompute(&task)
	c.tasks.Commit(ticket, task)

	return c.reconcile(ctx, task)
}

// reconcile re-fetches the authoritative task after a subtask mutation.
// The local derivation is a prediction; the server's recomputation wins.
// If the refetch itself fails, the provisional local state stands until
// the next successful read.
func (c *Coordinator) reconcile(ctx context.Context, local models.Task) (models.Task, error) {
	fresh, err := c.client.GetTask(ctx, local.ID)
	if err != nil {
		return local, nil
	}
	fresh.SortSubTasks()
	c.tasks.Commit(c.tasks.Begin(fresh.ID), fresh)
	return fresh, nil
}

func subTaskRequest(st models.SubTask) apiclient.SubTaskRequest {
	return apiclient.SubTaskRequest{
		Date:        st.Date,
		Description: st.Description,
		Status:      st.Status,
		HoursSpent:  st.HoursSpent,
		Remarks:     st.Remarks,
		CompletedAt: st.CompletedAt,
	}
}

// DashboardStats returns the role-shaped aggregate counts, served from a
// short-lived cache so dashboard widgets don't hammer the endpoint.
func (c *Coordinator) DashboardStats(ctx context.Context, actor auth.Actor) (json.RawMessage, error) {
	key := actor.ID
	if cached, ok := c.stats.Get(key); ok {
		return cached, nil
	}
	raw, err := c.client.DashboardStats(ctx)
	if err != nil {
		return nil, remoteErr(err)
	}
	c.stats.Set(key, raw, statsCacheTTL)
	return raw, nil
}

// InvalidateStats drops any cached dashboard aggregates, e.g. after a
// realtime event signals server-side changes.
func (c *Coordinator) InvalidateStats() {
	c.stats.Clear()
}
