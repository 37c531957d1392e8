// Package api is the HTTP client for the taskboard backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskboard/internal/models"
)

// DefaultTimeout bounds every backend call that does not carry its own deadline.
const DefaultTimeout = 30 * time.Second

// TokenSource provides the bearer token attached to requests. ClearToken is called
// when the backend answers 401.
type TokenSource interface {
	Token() (string, error)
	ClearToken() error
}

// Client calls the backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the given base URL. tokens may be nil for
// unauthenticated use.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	var data struct {
		Token string `json:"token"`
	}
	body := strings.NewReader(form.Encode())
	if err := c.do(ctx, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", body, &data); err != nil {
		return "", err
	}
	if data.Token == "" {
		return "", &Error{Message: "login response did not include a token", Status: http.StatusOK}
	}
	return data.Token, nil
}

// ListProjects returns the projects visible to the current user.
func (c *Client) ListProjects(ctx context.Context) ([]models.ProjectRecord, error) {
	var projects []models.ProjectRecord
	if err := c.getJSON(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, input models.ProjectInput) (models.ProjectRecord, error) {
	var project models.ProjectRecord
	err := c.sendJSON(ctx, http.MethodPost, "/projects", input, &project)
	return project, err
}

// UpdateProject sends only the fields set in patch.
func (c *Client) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectRecord, error) {
	var project models.ProjectRecord
	err := c.sendJSON(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), patch, &project)
	return project, err
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), "", nil, nil)
}

// ListTasks returns the tasks of a project, or every task of the user when projectID
// is empty.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]models.TaskRecord, error) {
	path := "/tasks"
	if projectID != "" {
		path = "/tasks/project/" + url.PathEscape(projectID)
	}
	var tasks []models.TaskRecord
	if err := c.getJSON(ctx, path, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task in projectID.
func (c *Client) CreateTask(ctx context.Context, projectID string, input models.TaskInput) (models.TaskRecord, error) {
	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	body := taskBody{
		Title:       &input.Title,
		Description: &input.Description,
		Status:      &status,
		ProjectID:   wireID(projectID),
	}
	if input.DueDate != "" {
		body.DueDate = &input.DueDate
	}
	body.setAssignee(input.AssigneeID)

	var task models.TaskRecord
	err := c.sendJSON(ctx, http.MethodPost, "/tasks", body, &task)
	return task, err
}

// UpdateTask sends only the fields set in patch.
func (c *Client) UpdateTask(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.TaskRecord, error) {
	body := taskBody{
		Title:       patch.Title,
		Description: patch.Description,
		Status:      patch.Status,
		DueDate:     patch.DueDate,
		ProjectID:   wireID(projectID),
	}
	if patch.AssigneeID != nil {
		body.setAssignee(*patch.AssigneeID)
		if body.AssignedTo == nil && body.AssignedUserID == nil {
			unassigned := int64(0)
			body.AssignedTo = &unassigned
		}
	}

	var task models.TaskRecord
	err := c.sendJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), body, &task)
	return task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), "", nil, nil)
}

// ListUsers returns the users tasks can be assigned to.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	var users []models.UserRecord
	if err := c.getJSON(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(data), dest)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			c.logger.Warn("unable to read token", slog.String("error", err.Error()))
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &Error{Message: msgUnreachable, Status: 0}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			if err := c.tokens.ClearToken(); err != nil {
				c.logger.Warn("unable to clear token", slog.String("error", err.Error()))
			}
		}
		message := env.Message
		if decodeErr != nil || message == "" {
			message = msgServer
		}
		return &Error{Message: message, Status: resp.StatusCode}
	}

	if dest == nil {
		return nil
	}
	if decodeErr != nil {
		return &Error{Message: fmt.Sprintf("malformed response: %v", decodeErr), Status: resp.StatusCode}
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return &Error{Message: fmt.Sprintf("malformed response: %v", err), Status: resp.StatusCode}
	}
	return nil
}

type taskBody struct {
	Title          *string            `json:"title,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Status         *models.TaskStatus `json:"status,omitempty"`
	DueDate        *string            `json:"dueDate,omitempty"`
	AssignedTo     *int64             `json:"assignedTo,omitempty"`
	AssignedUserID *string            `json:"assignedUserId,omitempty"`
	ProjectID      any                `json:"projectId,omitempty"`
}

// setAssignee sends numeric references as assignedTo and anything else as
// assignedUserId.
func (b *taskBody) setAssignee(ref string) {
	if ref == "" {
		return
	}
	if n, ok := models.FlexID(ref).Int64(); ok {
		b.AssignedTo = &n
		return
	}
	b.AssignedUserID = &ref
}

func wireID(id string) any {
	if id == "" {
		return nil
	}
	if n, ok := models.FlexID(id).Int64(); ok {
		return n
	}
	return id
}
