package store

import (
	"context"
	"log/slog"

	"taskboard/internal/models"
	"taskboard/internal/normalize"
	"taskboard/internal/reactive"
	"taskboard/internal/validate"
	"taskboard/internal/view"
)

// TaskState is a snapshot of the task store. Visible is Tasks with Options applied
// and is recomputed in the same update as every change to either.
type TaskState struct {
	ProjectID string
	Tasks     []models.Task
	Visible   []models.Task
	Options   view.Options
	Users     []models.User
	Status
}

// Tasks is the task collection of the selected project.
type Tasks struct {
	backend TaskBackend
	users   UserSource
	opts    options
	state   *reactive.Value[TaskState]
}

// NewTasks creates an empty store. users may be nil, in which case tasks are never
// resolved to assignees.
func NewTasks(backend TaskBackend, users UserSource, opts ...Option) *Tasks {
	return &Tasks{
		backend: backend,
		users:   users,
		opts:    buildOptions(opts),
		state: reactive.New(TaskState{
			Tasks:   []models.Task{},
			Visible: []models.Task{},
			Options: view.DefaultOptions(),
			Users:   []models.User{},
		}),
	}
}

// State returns the current snapshot.
func (t *Tasks) State() TaskState {
	return t.state.Get()
}

// Subscribe registers fn for every state change.
func (t *Tasks) Subscribe(fn func(TaskState)) (unsubscribe func()) {
	return t.state.Subscribe(fn)
}

func (t *Tasks) begin() {
	t.state.Update(func(st TaskState) TaskState {
		st.begin()
		return st
	})
}

// fetchUsers loads users without failing the caller.
func (t *Tasks) fetchUsers(ctx context.Context) ([]models.User, bool) {
	if t.users == nil {
		return nil, false
	}
	recs, ok := bestEffort(ctx, t.opts.logger, "users", t.users.ListUsers)
	if !ok {
		return nil, false
	}
	return normalize.Users(recs, t.opts.now()), true
}

// Fetch replaces the collection with the tasks of projectID. Users are refreshed
// first so assignees resolve against the latest list; a failed user fetch keeps the
// previous list.
func (t *Tasks) Fetch(ctx context.Context, projectID string) error {
	t.begin()

	users, fresh := t.fetchUsers(ctx)
	if !fresh {
		users = t.State().Users
	}

	recs, err := t.backend.ListTasks(ctx, projectID)
	var tasks []models.Task
	if err == nil {
		tasks, err = normalize.Tasks(recs, normalize.NewUserIndex(users), t.opts.now())
	}

	t.state.Update(func(st TaskState) TaskState {
		st.end(err)
		if fresh {
			st.Users = users
		}
		if err != nil {
			return st
		}
		st.ProjectID = projectID
		st.Tasks = tasks
		st.Visible = view.Apply(tasks, st.Options)
		return st
	})
	if err != nil {
		t.opts.logger.Warn("fetch tasks failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// FetchUsers refreshes the assignable users. On failure the previous list is kept.
func (t *Tasks) FetchUsers(ctx context.Context) error {
	if t.users == nil {
		return nil
	}
	recs, err := t.users.ListUsers(ctx)
	if err != nil {
		t.opts.logger.Warn("fetch users failed", slog.String("error", err.Error()))
		return err
	}
	users := normalize.Users(recs, t.opts.now())
	t.state.Update(func(st TaskState) TaskState {
		st.Users = users
		return st
	})
	return nil
}

// resolve normalizes rec, refreshing the user list once when the assignee is not
// in the cached one.
func (t *Tasks) resolve(ctx context.Context, rec models.TaskRecord) (models.Task, []models.User, bool, error) {
	now := t.opts.now()
	users := t.State().Users
	task, err := normalize.Task(rec, normalize.NewUserIndex(users), now)
	if err != nil || task.AssigneeID == "" || task.Assignee != nil {
		return task, nil, false, err
	}

	fresh, ok := t.fetchUsers(ctx)
	if !ok {
		return task, nil, false, nil
	}
	task, err = normalize.Task(rec, normalize.NewUserIndex(fresh), now)
	return task, fresh, true, err
}

// Create adds a task to projectID after the backend accepted it.
func (t *Tasks) Create(ctx context.Context, projectID string, input models.TaskInput) (models.Task, error) {
	if err := validate.TaskInput(input); err != nil {
		return models.Task{}, err
	}

	t.begin()

	rec, err := t.backend.CreateTask(ctx, projectID, input)
	var (
		task      models.Task
		users     []models.User
		refreshed bool
	)
	if err == nil {
		task, users, refreshed, err = t.resolve(ctx, rec)
	}
	if err == nil && task.ProjectID == "" {
		task.ProjectID = projectID
	}

	t.state.Update(func(st TaskState) TaskState {
		st.end(err)
		if refreshed {
			st.Users = users
		}
		if err != nil {
			return st
		}
		st.Tasks = appended(st.Tasks, task)
		st.Visible = view.Apply(st.Tasks, st.Options)
		return st
	})
	if err != nil {
		t.opts.logger.Warn("create task failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return models.Task{}, err
	}
	return task, nil
}

// Update applies patch to the task with the given canonical id.
func (t *Tasks) Update(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.Task, error) {
	if err := validate.TaskPatch(patch); err != nil {
		return models.Task{}, err
	}

	t.begin()

	rec, err := t.backend.UpdateTask(ctx, projectID, taskID, patch)
	var (
		task      models.Task
		users     []models.User
		refreshed bool
	)
	if err == nil {
		task, users, refreshed, err = t.resolve(ctx, rec)
	}
	if err == nil && task.ID == "" {
		task.ID = taskID
	}

	found := false
	t.state.Update(func(st TaskState) TaskState {
		st.end(err)
		if refreshed {
			st.Users = users
		}
		if err != nil {
			return st
		}
		st.Tasks, found = replaced(st.Tasks, func(existing models.Task) bool { return existing.ID == task.ID }, task)
		st.Visible = view.Apply(st.Tasks, st.Options)
		return st
	})
	if err != nil {
		t.opts.logger.Warn("update task failed", slog.String("task", taskID), slog.String("error", err.Error()))
		return models.Task{}, err
	}
	if !found {
		t.opts.logger.Debug("updated task is not in the collection", slog.String("task", task.ID))
	}
	return task, nil
}

// UpdateStatus moves a task to status.
func (t *Tasks) UpdateStatus(ctx context.Context, projectID, taskID string, status models.TaskStatus) (models.Task, error) {
	return t.Update(ctx, projectID, taskID, models.TaskPatch{Status: &status})
}

// Delete removes the task with the given canonical or legacy id after the backend did.
func (t *Tasks) Delete(ctx context.Context, projectID, taskID string) error {
	t.begin()

	err := t.backend.DeleteTask(ctx, taskID)

	t.state.Update(func(st TaskState) TaskState {
		st.end(err)
		if err != nil {
			return st
		}
		st.Tasks = without(st.Tasks, func(existing models.Task) bool { return hasID(taskID, existing.ID, existing.LegacyID) })
		st.Visible = view.Apply(st.Tasks, st.Options)
		return st
	})
	if err != nil {
		t.opts.logger.Warn("delete task failed", slog.String("project", projectID), slog.String("task", taskID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// SetStatusFilter changes the status filter and recomputes the visible list.
func (t *Tasks) SetStatusFilter(filter view.StatusFilter) {
	t.state.Update(func(st TaskState) TaskState {
		st.Options.Status = filter
		st.Visible = view.Apply(st.Tasks, st.Options)
		return st
	})
}

// SetSortOrder changes the sort order and recomputes the visible list.
func (t *Tasks) SetSortOrder(order view.SortOrder) {
	t.state.Update(func(st TaskState) TaskState {
		st.Options.Sort = order
		st.Visible = view.Apply(st.Tasks, st.Options)
		return st
	})
}

// ClearError drops the last error.
func (t *Tasks) ClearError() {
	t.state.Update(func(st TaskState) TaskState {
		st.Err = ""
		return st
	})
}
