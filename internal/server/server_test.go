package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

type testEnv struct {
	t      *testing.T
	srv    *Server
	store  *sqlite.Store
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	tokens := auth.NewTokenManager("test-secret", "taskboard-test", time.Hour)
	return &testEnv{t: t, srv: New(store, tokens, nil, nil), store: store, tokens: tokens}
}

func (e *testEnv) user(email string) (models.UserRecord, string) {
	e.t.Helper()
	user, err := e.store.CreateUser(context.Background(), "", email, "secret1", "")
	if err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	token, err := e.tokens.Issue(user.IDUser, user.Email, user.Role, time.Now())
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return user, token
}

type decoded struct {
	StatusCode int             `json:"statusCode"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (e *testEnv) do(method, path, token string, body any) (int, decoded) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)

	var env decoded
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		e.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestLoginIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.user("ana@example.com")

	form := url.Values{"email": {"ana@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		StatusCode int `json:"statusCode"`
		Data       struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := env.tokens.Validate(body.Data.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.ID != user.IDUser || claims.Email() != "ana@example.com" || body.StatusCode != http.StatusOK {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.user("ana@example.com")

	form := url.Values{"email": {"ana@example.com"}, "password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid email or password") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/projects", "/api/tasks", "/api/users", "/api/auth/me"} {
		code, body := env.do(http.MethodGet, path, "", nil)
		if code != http.StatusUnauthorized || body.Status != "error" {
			t.Fatalf("%s: expected 401, got %d %+v", path, code, body)
		}
	}
	code, _ := env.do(http.MethodGet, "/api/projects", "garbage", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", code)
	}
}

func TestProjectAndTaskFlow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("ana@example.com")
	bo, boToken := env.user("bo@example.com")

	code, body := env.do(http.MethodPost, "/api/projects", token, models.ProjectInput{Name: "Website"})
	if code != http.StatusCreated {
		t.Fatalf("create project: %d %+v", code, body)
	}
	var project models.ProjectRecord
	if err := json.Unmarshal(body.Data, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}

	code, body = env.do(http.MethodPost, "/api/tasks", token, map[string]any{
		"title":      "Write copy",
		"status":     "PENDING",
		"dueDate":    "2025-03-01",
		"assignedTo": bo.IDUser,
		"projectId":  project.IDProject,
	})
	if code != http.StatusCreated {
		t.Fatalf("create task: %d %+v", code, body)
	}
	var task models.TaskRecord
	if err := json.Unmarshal(body.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.AssignedTo != bo.IDUser || task.Status != "PENDING" {
		t.Fatalf("unexpected task %+v", task)
	}

	taskPath := "/api/tasks/" + jsonNumber(task.IDTask)
	code, body = env.do(http.MethodPut, taskPath, token, map[string]any{"status": "todo"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected invalid status to be rejected, got %d %+v", code, body)
	}
	code, body = env.do(http.MethodPut, taskPath, token, map[string]any{"status": "DONE", "assignedUserId": ""})
	if code != http.StatusOK {
		t.Fatalf("update task: %d %+v", code, body)
	}
	var updated models.TaskRecord
	if err := json.Unmarshal(body.Data, &updated); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if updated.Status != "DONE" || updated.AssignedTo != 0 {
		t.Fatalf("unexpected updated task %+v", updated)
	}

	code, _ = env.do(http.MethodGet, "/api/tasks/project/"+jsonNumber(project.IDProject), boToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected other user to get 404, got %d", code)
	}

	code, body = env.do(http.MethodGet, "/api/tasks/project/"+jsonNumber(project.IDProject), token, nil)
	var tasks []models.TaskRecord
	if code != http.StatusOK || json.Unmarshal(body.Data, &tasks) != nil || len(tasks) != 1 {
		t.Fatalf("list tasks: %d %s", code, body.Data)
	}

	code, _ = env.do(http.MethodDelete, "/api/projects/"+jsonNumber(project.IDProject), token, nil)
	if code != http.StatusOK {
		t.Fatalf("delete project: %d", code)
	}
	code, _ = env.do(http.MethodDelete, taskPath, token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected cascaded task to be gone, got %d", code)
	}
}

func TestUnknownRouteAndBadID(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("ana@example.com")

	code, body := env.do(http.MethodGet, "/api/nope", "", nil)
	if code != http.StatusNotFound || body.Message != "endpoint not found" {
		t.Fatalf("unexpected %d %+v", code, body)
	}
	code, _ = env.do(http.MethodDelete, "/api/projects/abc", token, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/api/healthz", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "taskboard_http_requests_total") {
		t.Fatalf("unexpected metrics output: %d", rec.Code)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	env := newTestEnv(t)
	env.srv.WithStatic(dir)

	req := httptest.NewRequest(http.MethodGet, "/projects/12", nil)
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "board") {
		t.Fatalf("expected index fallback, got %d %q", rec.Code, rec.Body.String())
	}

	code, _ := env.do(http.MethodGet, "/api/missing", "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected api 404, got %d", code)
	}
}

func jsonNumber(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
