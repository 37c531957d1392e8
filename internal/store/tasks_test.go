package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"taskboard/internal/api"
	"taskboard/internal/models"
	"taskboard/internal/view"
)

func seededTasks() *fakeBackend {
	fb := newFakeBackend()
	fb.users = []models.UserRecord{
		{IDUser: 5, Email: "ana@example.com", Username: "ana"},
		{IDUser: 6, Email: "bo@example.com", Username: "bo"},
	}
	fb.tasks = []models.TaskRecord{
		{IDTask: 1, Title: "Design", Status: "DONE", ProjectID: "10", AssignedTo: 5, DueDate: "2025-02-01"},
		{IDTask: 2, Title: "Build", Status: "IN_PROGRESS", ProjectID: "10", AssignedTo: 99},
		{IDTask: 3, Title: "Ship", Status: "PENDING", ProjectID: "10", DueDate: "2025-01-15"},
		{IDTask: 4, Title: "Elsewhere", Status: "PENDING", ProjectID: "11"},
	}
	return fb
}

func taskIDs(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTasksFetchResolvesAssignees(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))

	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	st := ts.State()
	if !equal(taskIDs(st.Tasks), []string{"1", "2", "3"}) {
		t.Fatalf("unexpected tasks %v", taskIDs(st.Tasks))
	}
	if st.Tasks[0].Assignee == nil || st.Tasks[0].Assignee.Email != "ana@example.com" {
		t.Fatalf("expected ana on task 1, got %+v", st.Tasks[0].Assignee)
	}
	if st.Tasks[1].Assignee != nil || st.Tasks[1].AssigneeID != "99" {
		t.Fatalf("expected unresolved assignee on task 2, got %+v", st.Tasks[1])
	}
	if st.Tasks[2].Assignee != nil {
		t.Fatalf("expected unassigned task 3")
	}
	if !st.Tasks[2].CreatedAt.Equal(testNow) {
		t.Fatalf("expected fallback timestamp, got %v", st.Tasks[2].CreatedAt)
	}
	if len(st.Users) != 2 || st.ProjectID != "10" {
		t.Fatalf("unexpected users/project %d / %q", len(st.Users), st.ProjectID)
	}
	if !equal(taskIDs(st.Visible), taskIDs(st.Tasks)) {
		t.Fatalf("expected visible to mirror tasks, got %v", taskIDs(st.Visible))
	}
}

func TestTasksFetchSurvivesUserFailure(t *testing.T) {
	fb := seededTasks()
	fb.usersErr = errOffline
	ts := NewTasks(fb, fb, WithClock(clock))

	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch should not fail on users: %v", err)
	}
	st := ts.State()
	if len(st.Tasks) != 3 || st.Err != "" {
		t.Fatalf("expected tasks without error, got %d / %q", len(st.Tasks), st.Err)
	}
	for _, task := range st.Tasks {
		if task.Assignee != nil {
			t.Fatalf("expected no assignees without users, got %+v", task)
		}
	}
}

func TestTasksFetchRejectsUnknownStatus(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	fb.mu.Lock()
	fb.tasks = append(fb.tasks, models.TaskRecord{IDTask: 9, Title: "Odd", Status: "BLOCKED", ProjectID: "10"})
	fb.mu.Unlock()

	err := ts.Fetch(context.Background(), "10")
	if !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	st := ts.State()
	if len(st.Tasks) != 3 || st.Err == "" {
		t.Fatalf("expected previous collection and an error, got %d / %q", len(st.Tasks), st.Err)
	}
}

func TestTasksFetchFailureKeepsCollection(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	fb.setErr(&api.Error{Message: "boom", Status: 500})
	if err := ts.Fetch(context.Background(), "10"); err == nil {
		t.Fatalf("expected error")
	}
	st := ts.State()
	if len(st.Tasks) != 3 || st.Err != "boom" || st.Loading {
		t.Fatalf("unexpected state %d tasks, err %q, loading %v", len(st.Tasks), st.Err, st.Loading)
	}
}

func TestTasksCreateRecomputesView(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	ts.SetStatusFilter(view.StatusFilter(models.StatusPending))

	task, err := ts.Create(context.Background(), "10", models.TaskInput{Title: "Test", AssigneeID: "6"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != models.StatusPending || task.Assignee == nil || task.Assignee.Email != "bo@example.com" {
		t.Fatalf("unexpected task %+v", task)
	}

	st := ts.State()
	if len(st.Tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(st.Tasks))
	}
	if !equal(taskIDs(st.Visible), []string{"3", task.ID}) {
		t.Fatalf("expected pending tasks 3 and %s, got %v", task.ID, taskIDs(st.Visible))
	}
}

func TestTasksCreateRefreshesUsersForUnknownAssignee(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	fb.mu.Lock()
	fb.users = append(fb.users, models.UserRecord{IDUser: 7, Email: "cy@example.com"})
	calls := fb.userCalls
	fb.mu.Unlock()

	task, err := ts.Create(context.Background(), "10", models.TaskInput{Title: "New hire task", AssigneeID: "7"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Assignee == nil || task.Assignee.Email != "cy@example.com" {
		t.Fatalf("expected refreshed assignee, got %+v", task.Assignee)
	}
	if fb.userCalls != calls+1 {
		t.Fatalf("expected one user refresh, got %d", fb.userCalls-calls)
	}
	if len(ts.State().Users) != 3 {
		t.Fatalf("expected refreshed user list")
	}

	if _, err := ts.Create(context.Background(), "10", models.TaskInput{Title: "Known", AssigneeID: "5"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if fb.userCalls != calls+1 {
		t.Fatalf("expected cached users for a known assignee")
	}
}

func TestTasksUpdateStatusMovesBetweenFilters(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	ts.SetStatusFilter(view.StatusFilter(models.StatusDone))
	if !equal(taskIDs(ts.State().Visible), []string{"1"}) {
		t.Fatalf("unexpected visible %v", taskIDs(ts.State().Visible))
	}

	if _, err := ts.UpdateStatus(context.Background(), "10", "3", models.StatusDone); err != nil {
		t.Fatalf("update status: %v", err)
	}
	st := ts.State()
	if !equal(taskIDs(st.Visible), []string{"1", "3"}) {
		t.Fatalf("expected 1 and 3 done, got %v", taskIDs(st.Visible))
	}
	if st.Tasks[2].Status != models.StatusDone || len(st.Tasks) != 3 {
		t.Fatalf("expected task 3 replaced in place, got %+v", st.Tasks)
	}

	if _, err := ts.UpdateStatus(context.Background(), "10", "3", models.TaskStatus("CLOSED")); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestTasksDeleteAndSort(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	ts.SetSortOrder(view.SortAsc)
	if !equal(taskIDs(ts.State().Visible), []string{"3", "1", "2"}) {
		t.Fatalf("unexpected ascending order %v", taskIDs(ts.State().Visible))
	}

	if err := ts.Delete(context.Background(), "10", "3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st := ts.State()
	if !equal(taskIDs(st.Tasks), []string{"1", "2"}) || !equal(taskIDs(st.Visible), []string{"1", "2"}) {
		t.Fatalf("unexpected state after delete %v / %v", taskIDs(st.Tasks), taskIDs(st.Visible))
	}

	fb.setErr(errOffline)
	if err := ts.Delete(context.Background(), "10", "1"); !api.IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if len(ts.State().Tasks) != 2 {
		t.Fatalf("expected collection unchanged after failed delete")
	}
}

func TestTasksFetchUsersKeepsStaleList(t *testing.T) {
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock))
	if err := ts.FetchUsers(context.Background()); err != nil {
		t.Fatalf("fetch users: %v", err)
	}
	fb.mu.Lock()
	fb.usersErr = errOffline
	fb.mu.Unlock()

	if err := ts.FetchUsers(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	st := ts.State()
	if len(st.Users) != 2 || st.Err != "" {
		t.Fatalf("expected stale users and no store error, got %d / %q", len(st.Users), st.Err)
	}
}

func taskTitles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestTasksConcurrentCreatesLandInArrivalOrder(t *testing.T) {
	fb := newFakeBackend()
	release := fb.holdCreates("A", "B")
	ts := NewTasks(fb, nil, WithClock(clock))
	ts.SetSortOrder(view.SortAsc)

	create := func(title, due string) func() error {
		return func() error {
			_, err := ts.Create(context.Background(), "10", models.TaskInput{Title: title, DueDate: due})
			return err
		}
	}
	a := fb.start(t, create("A", "2025-01-01"))
	b := fb.start(t, create("B", "2025-02-01"))

	close(release["B"])
	<-b
	st := ts.State()
	if !equal(taskTitles(st.Tasks), []string{"B"}) || !equal(taskTitles(st.Visible), []string{"B"}) {
		t.Fatalf("expected only B, got %v / %v", taskTitles(st.Tasks), taskTitles(st.Visible))
	}
	if !st.Loading {
		t.Fatalf("expected loading while A is in flight")
	}

	close(release["A"])
	<-a
	st = ts.State()
	if !equal(taskTitles(st.Tasks), []string{"B", "A"}) {
		t.Fatalf("expected tasks in arrival order B, A, got %v", taskTitles(st.Tasks))
	}
	if !equal(taskTitles(st.Visible), []string{"A", "B"}) {
		t.Fatalf("expected visible sorted by due date A, B, got %v", taskTitles(st.Visible))
	}
	if st.Loading {
		t.Fatalf("expected loading cleared after both completed")
	}
}

func TestTasksDeleteByLegacyID(t *testing.T) {
	fb := newFakeBackend()
	fb.tasks = []models.TaskRecord{
		{IDTask: 7, ID: "abc", Title: "Design", Status: "PENDING", ProjectID: "10"},
		{IDTask: 8, Title: "Build", Status: "PENDING", ProjectID: "10"},
	}
	ts := NewTasks(fb, nil, WithClock(clock))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := ts.Delete(context.Background(), "10", "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st := ts.State()
	if !equal(taskIDs(st.Tasks), []string{"8"}) || !equal(taskIDs(st.Visible), []string{"8"}) {
		t.Fatalf("expected only task 8 left, got %v / %v", taskIDs(st.Tasks), taskIDs(st.Visible))
	}
}

func TestTasksUpdateAfterDeleteDoesNotResurrect(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fb := seededTasks()
	ts := NewTasks(fb, fb, WithClock(clock), WithLogger(logger))
	if err := ts.Fetch(context.Background(), "10"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := ts.Delete(context.Background(), "10", "3"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := ts.UpdateStatus(context.Background(), "10", "3", models.StatusDone); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !equal(taskIDs(ts.State().Tasks), []string{"1", "2"}) {
		t.Fatalf("expected deleted task to stay gone, got %v", taskIDs(ts.State().Tasks))
	}
	if !strings.Contains(logs.String(), "updated task is not in the collection") {
		t.Fatalf("expected the missing task to be logged, got %q", logs.String())
	}
}
