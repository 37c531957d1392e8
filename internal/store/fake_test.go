package store

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"taskboard/internal/api"
	"taskboard/internal/models"
)

var errOffline = &api.Error{Message: "unable to reach server", Status: 0}

// fakeBackend is an in-memory backend for store tests.
type fakeBackend struct {
	mu       sync.Mutex
	projects []models.ProjectRecord
	tasks    []models.TaskRecord
	users    []models.UserRecord
	nextID   int64

	err       error
	usersErr  error
	userCalls int
	calls     int

	// Create calls whose name or title is a key of holds signal entered and block
	// until that channel is closed.
	holds   map[string]chan struct{}
	entered chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100, entered: make(chan string)}
}

// holdCreates makes creates named by keys block until their channel is closed.
func (f *fakeBackend) holdCreates(keys ...string) map[string]chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds = make(map[string]chan struct{}, len(keys))
	for _, key := range keys {
		f.holds[key] = make(chan struct{})
	}
	return f.holds
}

// start runs create in the background and returns once its backend call is held.
// The returned channel is closed when create returned.
func (f *fakeBackend) start(t *testing.T, create func() error) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := create(); err != nil {
			t.Errorf("create: %v", err)
		}
	}()
	<-f.entered
	return done
}

func (f *fakeBackend) call() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeBackend) hold(key string) {
	f.mu.Lock()
	release := f.holds[key]
	f.mu.Unlock()
	if release == nil {
		return
	}
	f.entered <- key
	<-release
}

func (f *fakeBackend) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]models.ProjectRecord, error) {
	if err := f.call(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ProjectRecord(nil), f.projects...), nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, input models.ProjectInput) (models.ProjectRecord, error) {
	if err := f.call(); err != nil {
		return models.ProjectRecord{}, err
	}
	rec := models.ProjectRecord{IDProject: f.id(), Name: input.Name, Description: input.Description}
	f.hold(input.Name)
	f.mu.Lock()
	f.projects = append(f.projects, rec)
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectRecord, error) {
	if err := f.call(); err != nil {
		return models.ProjectRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rec := range f.projects {
		if strconv.FormatInt(rec.IDProject, 10) != id {
			continue
		}
		if patch.Name != nil {
			rec.Name = *patch.Name
		}
		if patch.Description != nil {
			rec.Description = *patch.Description
		}
		f.projects[i] = rec
		return rec, nil
	}
	return models.ProjectRecord{}, &api.Error{Message: "project not found", Status: 404}
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id string) error {
	return f.call()
}

func (f *fakeBackend) ListTasks(ctx context.Context, projectID string) ([]models.TaskRecord, error) {
	if err := f.call(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskRecord
	for _, rec := range f.tasks {
		if projectID == "" || string(rec.ProjectID) == projectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateTask(ctx context.Context, projectID string, input models.TaskInput) (models.TaskRecord, error) {
	if err := f.call(); err != nil {
		return models.TaskRecord{}, err
	}
	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	rec := models.TaskRecord{
		IDTask:      f.id(),
		Title:       input.Title,
		Description: input.Description,
		Status:      string(status),
		DueDate:     input.DueDate,
		ProjectID:   models.FlexID(projectID),
	}
	if n, ok := models.FlexID(input.AssigneeID).Int64(); ok {
		rec.AssignedTo = n
	}
	f.hold(input.Title)
	f.mu.Lock()
	f.tasks = append(f.tasks, rec)
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeBackend) UpdateTask(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.TaskRecord, error) {
	if err := f.call(); err != nil {
		return models.TaskRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rec := range f.tasks {
		if strconv.FormatInt(rec.IDTask, 10) != taskID {
			continue
		}
		if patch.Title != nil {
			rec.Title = *patch.Title
		}
		if patch.Status != nil {
			rec.Status = string(*patch.Status)
		}
		if patch.DueDate != nil {
			rec.DueDate = *patch.DueDate
		}
		f.tasks[i] = rec
		return rec, nil
	}
	return models.TaskRecord{}, &api.Error{Message: "task not found", Status: 404}
}

func (f *fakeBackend) DeleteTask(ctx context.Context, taskID string) error {
	return f.call()
}

func (f *fakeBackend) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]models.UserRecord(nil), f.users...), nil
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
