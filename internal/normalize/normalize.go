// Package normalize converts backend records into the canonical client model.
//
// The backend mixes numeric legacy identifiers with optional string identifiers and
// nests related entities inconsistently. Every record entering the client passes
// through this package so that the rest of the code only ever sees one shape and one
// identifier per entity. The functions are pure: the clock and the user table are
// passed in by the caller.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/models"
)

// CanonicalID resolves the collection key for a record: the string id when present,
// otherwise the decimal form of the legacy numeric id, otherwise the empty string.
func CanonicalID(id string, legacy int64) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	if legacy != 0 {
		return strconv.FormatInt(legacy, 10)
	}
	return ""
}

// StatusError reports a task whose status is outside the closed set.
type StatusError struct {
	TaskID string
	Value  string
}

func (e *StatusError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("task has unexpected status %q", e.Value)
	}
	return fmt.Sprintf("task %s has unexpected status %q", e.TaskID, e.Value)
}

func (e *StatusError) Unwrap() error {
	return models.ErrInvalidStatus
}

// User canonicalizes a user record.
func User(rec models.UserRecord, now time.Time) models.User {
	email := strings.TrimSpace(rec.Email)
	user := models.User{
		ID:       CanonicalID(rec.ID, rec.IDUser),
		LegacyID: rec.IDUser,
		Email:    email,
		Username: strings.TrimSpace(rec.Username),
		Name:     strings.TrimSpace(rec.Name),
		Role:     rec.Role,
		Status:   rec.Status,
	}
	if user.Name == "" {
		user.Name = user.Username
	}
	if user.Name == "" {
		user.Name = localPart(email)
	}
	user.CreatedAt, user.UpdatedAt = timestamps(rec.CreatedAt, rec.UpdatedAt, now)
	return user
}

// Users canonicalizes a list of user records.
func Users(recs []models.UserRecord, now time.Time) []models.User {
	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, User(rec, now))
	}
	return users
}

// Project canonicalizes a project record. Inline tasks are normalized without
// assignee resolution.
func Project(rec models.ProjectRecord, now time.Time) (models.Project, error) {
	project := models.Project{
		ID:          CanonicalID(rec.ID, rec.IDProject),
		LegacyID:    rec.IDProject,
		Name:        strings.TrimSpace(rec.Name),
		Description: rec.Description,
		Status:      rec.Status,
		OwnerID:     strings.TrimSpace(rec.UserID),
	}
	if rec.Owner != nil {
		owner := User(*rec.Owner, now)
		project.Owner = &owner
		if owner.ID != "" {
			project.OwnerID = owner.ID
		}
	}
	project.CreatedAt, project.UpdatedAt = timestamps(rec.CreatedAt, rec.UpdatedAt, now)

	if len(rec.Tasks) > 0 {
		tasks, err := Tasks(rec.Tasks, nil, now)
		if err != nil {
			return models.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
		}
		project.Tasks = tasks
	}
	return project, nil
}

// Projects canonicalizes a list of project records.
func Projects(recs []models.ProjectRecord, now time.Time) ([]models.Project, error) {
	projects := make([]models.Project, 0, len(recs))
	for _, rec := range recs {
		project, err := Project(rec, now)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// Task canonicalizes a task record. The assignee reference is resolved against users,
// which may be nil; an unknown reference leaves the task unassigned.
func Task(rec models.TaskRecord, users UserLookup, now time.Time) (models.Task, error) {
	id := CanonicalID(rec.ID, rec.IDTask)
	status := models.TaskStatus(strings.TrimSpace(rec.Status))
	if !status.IsValid() {
		return models.Task{}, &StatusError{TaskID: id, Value: rec.Status}
	}

	task := models.Task{
		ID:          id,
		LegacyID:    rec.IDTask,
		Title:       strings.TrimSpace(rec.Title),
		Description: rec.Description,
		Status:      status,
		DueDate:     parseDue(rec.DueDate),
		ProjectID:   string(rec.ProjectID),
	}

	if ref := assigneeRef(rec); ref != "" {
		task.AssigneeID = ref
		if users != nil {
			if user, ok := users.LookupUser(ref); ok {
				task.Assignee = &user
			}
		}
	}

	// The backend does not send task timestamps; the fallback is the time of
	// normalization, not the time the task was created.
	task.CreatedAt, task.UpdatedAt = timestamps(rec.CreatedAt, rec.UpdatedAt, now)
	return task, nil
}

// Tasks canonicalizes a list of task records, failing on the first contract violation.
func Tasks(recs []models.TaskRecord, users UserLookup, now time.Time) ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(recs))
	for _, rec := range recs {
		task, err := Task(rec, users, now)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func assigneeRef(rec models.TaskRecord) string {
	if rec.AssignedTo != 0 {
		return strconv.FormatInt(rec.AssignedTo, 10)
	}
	return strings.TrimSpace(rec.AssignedUserID)
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func timestamps(created, updated string, now time.Time) (time.Time, time.Time) {
	createdAt, ok := ParseTime(created)
	if !ok {
		createdAt = now
	}
	updatedAt, ok := ParseTime(updated)
	if !ok {
		updatedAt = createdAt
	}
	return createdAt, updatedAt
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTime accepts RFC 3339, zone-less ISO date-times and plain dates. Zone-less
// values are read as UTC.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func parseDue(value string) *time.Time {
	parsed, ok := ParseTime(value)
	if !ok {
		return nil
	}
	return &parsed
}
