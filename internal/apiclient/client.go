// Package apiclient talks to the task-tracking REST API described by the
// server contract: JSON bodies, bearer-token auth, ISO-8601 dates. It does
// no policy or validation work; that lives in the coordinator and below.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"task-tracking-client/internal/models"
)

// APIError is a non-2xx answer from the server, carrying the upstream
// status code and message unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a thin HTTP client for the task API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for the API rooted at baseURL (e.g.
// "http://localhost:8008/api").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed server payload: " + err.Error()}
	}
	return nil
}

// errorMessage digs the human-readable message out of an error body; both
// {"error": "..."} and {"message": "..."} shapes occur in the wild.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return "request failed"
}

// LoginResponse is the answer to a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err == nil {
		c.token = resp.Token
	}
	return resp, err
}

// TaskFilters narrows and pages a task list request.
type TaskFilters struct {
	Page       int
	Limit      int
	Status     models.TaskStatus
	Priority   models.TaskPriority
	AssignedTo string
	Search     string
}

func (f TaskFilters) query() string {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	if f.AssignedTo != "" {
		q.Set("assignedTo", f.AssignedTo)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// TaskPage is one page of the task list.
type TaskPage struct {
	Tasks []models.Task `json:"tasks"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
	Total int           `json:"total"`
}

// ListTasks fetches a page of tasks.
func (c *Client) ListTasks(ctx context.Context, filters TaskFilters) (TaskPage, error) {
	var page TaskPage
	err := c.do(ctx, http.MethodGet, "/tasks"+filters.query(), nil, &page)
	return page, err
}

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

// GetTask fetches a single task with its subtasks.
func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var env taskEnvelope
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &env)
	return env.Task, err
}

// CreateTaskRequest is the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assignedTo"`
	Company     string              `json:"company,omitempty"`
	StartDate   string              `json:"startDate"`
	EndDate     string              `json:"endDate"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	Status      models.TaskStatus   `json:"status,omitempty"`
}

// CreateTask creates a task and returns the server's authoritative copy.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (models.Task, error) {
	var env taskEnvelope
	err := c.do(ctx, http.MethodPost, "/tasks", req, &env)
	return env.Task, err
}

// UpdateTaskRequest is a partial update for PUT /tasks/{id}; nil fields
// are left untouched by the server.
type UpdateTaskRequest struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	AssignedTo  *string              `json:"assignedTo,omitempty"`
	Company     *string              `json:"company,omitempty"`
	StartDate   *string              `json:"startDate,omitempty"`
	EndDate     *string              `json:"endDate,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
}

// UpdateTask applies a partial update and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (models.Task, error) {
	var env taskEnvelope
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), req, &env)
	return env.Task, err
}

// UpdateTaskStatus changes only the task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (models.Task, error) {
	var env taskEnvelope
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/status", map[string]models.TaskStatus{"status": status}, &env)
	return env.Task, err
}

// DeleteTask deletes a task; its subtasks go with it.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// SubTaskRequest is the payload for subtask creation and update.
type SubTaskRequest struct {
	Date        string            `json:"date"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status,omitempty"`
	HoursSpent  float64           `json:"hoursSpent"`
	Remarks     string            `json:"remarks,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

type subTaskEnvelope struct {
	SubTask models.SubTask `json:"subTask"`
}

// AddSubTask creates a subtask under the given task.
func (c *Client) AddSubTask(ctx context.Context, taskID string, req SubTaskRequest) (models.SubTask, error) {
	var env subTaskEnvelope
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/subtasks", req, &env)
	return env.SubTask, err
}

// UpdateSubTask updates a subtask under the given task.
func (c *Client) UpdateSubTask(ctx context.Context, taskID, subTaskID string, req SubTaskRequest) (models.SubTask, error) {
	var env subTaskEnvelope
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/subtasks/"+url.PathEscape(subTaskID), req, &env)
	return env.SubTask, err
}

// DeleteSubTask deletes a subtask under the given task.
func (c *Client) DeleteSubTask(ctx context.Context, taskID, subTaskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID)+"/subtasks/"+url.PathEscape(subTaskID), nil, nil)
}

// DashboardStats fetches the role-shaped aggregate counts. The shape varies
// by role, so the payload stays opaque to the core.
func (c *Client) DashboardStats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/tasks/dashboard/stats", nil, &raw)
	return raw, err
}

// ListUsers fetches assignable users for pickers.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var env struct {
		Users []models.User `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/users", nil, &env)
	return env.Users, err
}

// ListCompanies fetches the company directory.
func (c *Client) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var env struct {
		Companies []models.Company `json:"companies"`
	}
	err := c.do(ctx, http.MethodGet, "/companies", nil, &env)
	return env.Companies, err
}
