package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/database"
	"task-tracking-client/internal/middleware"
	"task-tracking-client/internal/models"
	"task-tracking-client/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	return db
}

func newAPIRouter() *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.POST("/login", Login)
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/tasks", GetTasks)
		protected.GET("/tasks/dashboard/stats", GetDashboardStats)
		protected.GET("/tasks/:id", GetTaskByID)
		protected.POST("/tasks", CreateTask)
		protected.PUT("/tasks/:id", UpdateTask)
		protected.PATCH("/tasks/:id/status", UpdateTaskStatus)
		protected.DELETE("/tasks/:id", DeleteTask)
		protected.POST("/tasks/:id/subtasks", AddSubTask)
		protected.PUT("/tasks/:id/subtasks/:subId", UpdateSubTask)
		protected.DELETE("/tasks/:id/subtasks/:subId", DeleteSubTask)
		protected.GET("/users", GetAllUsers)
		protected.GET("/companies", GetAllCompanies)
	}
	return r
}

func seedUser(t *testing.T, db *gorm.DB, id string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		ID:        id,
		Name:      "User " + id,
		Email:     id + "@example.com",
		Password:  "x",
		Role:      role,
		CompanyID: "company-1",
		IsActive:  true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(&u)
	require.NoError(t, err)
	return token
}

func seedTask(t *testing.T, db *gorm.DB, id, assigneeID string) models.Task {
	t.Helper()
	task := models.Task{
		ID:           id,
		Title:        "Task " + id,
		AssignedToID: assigneeID,
		CompanyID:    "company-1",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-10",
		Priority:     models.PriorityMedium,
		Status:       models.StatusPending,
		Effort:       9,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func doJSON(r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var resp struct {
		Task models.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Task
}
