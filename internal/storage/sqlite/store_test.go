package sqlite

import (
	"context"
	"errors"
	"testing"

	"taskboard/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, store *Store, email string) models.UserRecord {
	t.Helper()
	user, err := store.CreateUser(context.Background(), "", email, "secret1", "")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestUsersAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := mustUser(t, store, "ana@example.com")
	if user.IDUser == 0 || user.Username != "ana" || user.Role != "MEMBER" || user.CreatedAt == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	got, err := store.Authenticate(ctx, "ana@example.com", "secret1")
	if err != nil || got.IDUser != user.IDUser {
		t.Fatalf("expected successful login, got %+v (%v)", got, err)
	}
	if _, err := store.Authenticate(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := store.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
	if _, err := store.CreateUser(ctx, "", "ANA@example.com", "secret1", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, created, err := store.EnsureUser(ctx, "admin@example.com", "secret1", "ADMIN")
	if err != nil || !created {
		t.Fatalf("expected seed, got %v (%v)", created, err)
	}
	second, created, err := store.EnsureUser(ctx, "admin@example.com", "other-password", "ADMIN")
	if err != nil || created || second.IDUser != first.IDUser {
		t.Fatalf("expected existing user, got %+v created=%v (%v)", second, created, err)
	}
	users, err := store.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %d (%v)", len(users), err)
	}
}

func TestProjectsAreScopedToOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ana := mustUser(t, store, "ana@example.com")
	bo := mustUser(t, store, "bo@example.com")

	project, err := store.CreateProject(ctx, ana.IDUser, " Website ", "marketing site")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.Name != "Website" || project.Owner == nil || project.Owner.Email != "ana@example.com" || project.Status != "ACTIVE" {
		t.Fatalf("unexpected project %+v", project)
	}

	if _, err := store.GetProject(ctx, bo.IDUser, project.IDProject); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user to get not found, got %v", err)
	}
	if err := store.DeleteProject(ctx, bo.IDUser, project.IDProject); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user delete to fail, got %v", err)
	}

	updated, err := store.UpdateProject(ctx, ana.IDUser, project.IDProject, models.ProjectPatch{Description: ptr("new copy")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Website" || updated.Description != "new copy" {
		t.Fatalf("expected only description to change, got %+v", updated)
	}
	if _, err := store.UpdateProject(ctx, ana.IDUser, project.IDProject, models.ProjectPatch{Name: ptr(" ")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	list, err := store.ListProjects(ctx, bo.IDUser)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no projects for bo, got %d (%v)", len(list), err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ana := mustUser(t, store, "ana@example.com")
	bo := mustUser(t, store, "bo@example.com")
	project, err := store.CreateProject(ctx, ana.IDUser, "Website", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	task, err := store.CreateTask(ctx, ana.IDUser, TaskChanges{
		Title:      ptr("Write copy"),
		ProjectID:  &project.IDProject,
		DueDate:    ptr("2025-03-01"),
		AssignedTo: &bo.IDUser,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != "PENDING" || task.DueDate != "2025-03-01" || task.AssignedTo != bo.IDUser {
		t.Fatalf("unexpected task %+v", task)
	}
	if pid, _ := task.ProjectID.Int64(); pid != project.IDProject {
		t.Fatalf("unexpected project id %q", task.ProjectID)
	}

	done := models.StatusDone
	task, err = store.UpdateTask(ctx, ana.IDUser, task.IDTask, TaskChanges{Status: &done, AssignedTo: ptr(int64(0)), DueDate: ptr("")})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if task.Status != "DONE" || task.AssignedTo != 0 || task.DueDate != "" || task.Title != "Write copy" {
		t.Fatalf("unexpected updated task %+v", task)
	}

	bad := models.TaskStatus("todo")
	if _, err := store.UpdateTask(ctx, ana.IDUser, task.IDTask, TaskChanges{Status: &bad}); !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := store.UpdateTask(ctx, ana.IDUser, task.IDTask, TaskChanges{AssignedTo: ptr(int64(999))}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown assignee to be rejected, got %v", err)
	}
	if _, err := store.UpdateTask(ctx, bo.IDUser, task.IDTask, TaskChanges{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user to get not found, got %v", err)
	}

	tasks, err := store.ListProjectTasks(ctx, ana.IDUser, project.IDProject)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one task, got %d (%v)", len(tasks), err)
	}
	all, err := store.ListTasks(ctx, ana.IDUser)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one task overall, got %d (%v)", len(all), err)
	}

	if err := store.DeleteTask(ctx, ana.IDUser, task.IDTask); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := store.DeleteTask(ctx, ana.IDUser, task.IDTask); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}

func TestDeleteProjectCascadesTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ana := mustUser(t, store, "ana@example.com")
	project, err := store.CreateProject(ctx, ana.IDUser, "Website", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.CreateTask(ctx, ana.IDUser, TaskChanges{Title: ptr("t"), ProjectID: &project.IDProject}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := store.DeleteProject(ctx, ana.IDUser, project.IDProject); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	tasks, err := store.ListTasks(ctx, ana.IDUser)
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected tasks to be removed, got %d (%v)", len(tasks), err)
	}
}
