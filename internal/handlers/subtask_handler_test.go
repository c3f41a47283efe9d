package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"task-tracking-client/internal/models"

	"github.com/stretchr/testify/require"
)

func decodeSubTaskResponse(t *testing.T, w *httptest.ResponseRecorder) (models.SubTask, models.Task) {
	t.Helper()
	var resp struct {
		SubTask models.SubTask `json:"subTask"`
		Task    models.Task    `json:"task"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.SubTask, resp.Task
}

func TestAddSubTask_AssignedStaff(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", tokenFor(t, staff), map[string]any{
		"date":        "2024-01-03",
		"description": "wrote the migration",
		"hoursSpent":  3.5,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	sub, task := decodeSubTaskResponse(t, w)
	require.NotEmpty(t, sub.ID)
	require.Equal(t, models.StatusPending, sub.Status)
	require.Equal(t, 3.5, sub.HoursSpent)
	require.Nil(t, sub.CompletedAt)
	require.Len(t, task.SubTasks, 1)
	require.Equal(t, 0, task.Progress)
}

func TestAddSubTask_ManagerForbidden(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	manager := seedUser(t, db, "u-mgr", models.RoleManager)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", tokenFor(t, manager), map[string]any{
		"date":        "2024-01-03",
		"description": "managers only review",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddSubTask_UnassignedStaffCannotSeeTask(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	other := seedUser(t, db, "u-other", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", tokenFor(t, other), map[string]any{
		"date":        "2024-01-03",
		"description": "not my task",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddSubTask_DateOutsideTaskWindow(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID) // window 2024-01-01..2024-01-10
	r := newAPIRouter()

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", tokenFor(t, staff), map[string]any{
		"date":        "2024-01-15",
		"description": "outside window",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Fields []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	require.Equal(t, "date", resp.Fields[0].Field)
}

func TestUpdateSubTask_CompletionDrivesTaskState(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()
	token := tokenFor(t, staff)

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", token, map[string]any{
		"date": "2024-01-02", "description": "only entry",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sub, _ := decodeSubTaskResponse(t, w)

	// completing the only subtask pushes the task to 100%/completed
	w = doJSON(r, http.MethodPut, "/api/tasks/task-1/subtasks/"+sub.ID, token, map[string]any{
		"date": "2024-01-02", "description": "only entry", "status": "completed", "hoursSpent": 6,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated, task := decodeSubTaskResponse(t, w)
	require.NotNil(t, updated.CompletedAt)
	require.Equal(t, 100, task.Progress)
	require.Equal(t, models.StatusCompleted, task.Status)
	firstCompletedAt := *updated.CompletedAt

	// re-saving while still completed keeps the original timestamp
	w = doJSON(r, http.MethodPut, "/api/tasks/task-1/subtasks/"+sub.ID, token, map[string]any{
		"date": "2024-01-02", "description": "only entry, edited", "status": "completed", "hoursSpent": 6,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated, _ = decodeSubTaskResponse(t, w)
	require.NotNil(t, updated.CompletedAt)
	require.True(t, updated.CompletedAt.Equal(firstCompletedAt))

	// reverting clears the timestamp and re-derives the task off completed
	w = doJSON(r, http.MethodPut, "/api/tasks/task-1/subtasks/"+sub.ID, token, map[string]any{
		"date": "2024-01-02", "description": "only entry", "status": "pending", "hoursSpent": 6,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated, task = decodeSubTaskResponse(t, w)
	require.Nil(t, updated.CompletedAt)
	require.Equal(t, 0, task.Progress)
	require.NotEqual(t, models.StatusCompleted, task.Status)
}

func TestUpdateSubTask_NotFound(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()

	w := doJSON(r, http.MethodPut, "/api/tasks/task-1/subtasks/subtask-missing", tokenFor(t, staff), map[string]any{
		"date": "2024-01-02", "description": "ghost",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSubTask_RecomputesProgress(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()
	token := tokenFor(t, staff)

	w := doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", token, map[string]any{
		"date": "2024-01-02", "description": "first", "status": "completed",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first, _ := decodeSubTaskResponse(t, w)

	w = doJSON(r, http.MethodPost, "/api/tasks/task-1/subtasks", token, map[string]any{
		"date": "2024-01-03", "description": "second",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	_, task := decodeSubTaskResponse(t, w)
	require.Equal(t, 50, task.Progress)

	// removing the completed half drops progress back to zero
	w = doJSON(r, http.MethodDelete, "/api/tasks/task-1/subtasks/"+first.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task = decodeTask(t, w)
	require.Equal(t, 0, task.Progress)
	require.Len(t, task.SubTasks, 1)
}

func TestDeleteSubTask_NotFound(t *testing.T) {
	db := setupTestDB(t)
	staff := seedUser(t, db, "u-staff", models.RoleStaff)
	seedTask(t, db, "task-1", staff.ID)
	r := newAPIRouter()

	w := doJSON(r, http.MethodDelete, "/api/tasks/task-1/subtasks/subtask-missing", tokenFor(t, staff), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
