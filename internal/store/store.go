// Package store holds the client-side project and task collections. Each store calls
// the backend, canonicalizes the result and publishes a new immutable snapshot.
// Stores are safe for concurrent use; no lock is held while a backend call is in
// flight, so overlapping operations are applied in the order their results arrive.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/models"
)

// ErrNotFound reports an id that is not in the collection.
var ErrNotFound = errors.New("not found")

// ProjectBackend is the remote side of the project store.
type ProjectBackend interface {
	ListProjects(ctx context.Context) ([]models.ProjectRecord, error)
	CreateProject(ctx context.Context, input models.ProjectInput) (models.ProjectRecord, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectRecord, error)
	DeleteProject(ctx context.Context, id string) error
}

// TaskBackend is the remote side of the task store.
type TaskBackend interface {
	ListTasks(ctx context.Context, projectID string) ([]models.TaskRecord, error)
	CreateTask(ctx context.Context, projectID string, input models.TaskInput) (models.TaskRecord, error)
	UpdateTask(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.TaskRecord, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// UserSource lists the users tasks can be assigned to.
type UserSource interface {
	ListUsers(ctx context.Context) ([]models.UserRecord, error)
}

// Status is the loading and error signal embedded in every store snapshot.
type Status struct {
	Loading bool
	Err     string

	pending int
}

func (s *Status) begin() {
	s.pending++
	s.Loading = true
	s.Err = ""
}

func (s *Status) end(err error) {
	if s.pending > 0 {
		s.pending--
	}
	s.Loading = s.pending > 0
	if err != nil {
		s.Err = api.Message(err)
	}
}

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a store.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock handed to the normalizer.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// bestEffort runs fn and reports whether it produced a value. Failures are logged
// and never returned.
func bestEffort[T any](ctx context.Context, logger *slog.Logger, what string, fn func(context.Context) (T, error)) (T, bool) {
	value, err := fn(ctx)
	if err != nil {
		logger.Warn("best effort fetch failed", slog.String("what", what), slog.String("error", err.Error()))
		var zero T
		return zero, false
	}
	return value, true
}

func without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

// hasID reports whether id names an entity by its canonical id or, when set, its
// legacy numeric id.
func hasID(id string, canonical string, legacy int64) bool {
	if id == "" {
		return false
	}
	return canonical == id || (legacy != 0 && strconv.FormatInt(legacy, 10) == id)
}

// replaced returns a copy of items with every match swapped for next. found is false
// when nothing matched, for example after a concurrent delete landed first.
func replaced[T any](items []T, match func(T) bool, next T) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)
	found := false
	for i := range out {
		if match(out[i]) {
			out[i] = next
			found = true
		}
	}
	return out, found
}

func appended[T any](items []T, next T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, next)
}
