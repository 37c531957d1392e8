package models

import (
	"errors"
	"time"
)

// TaskStatus is the lifecycle state of a task. The set is closed.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// ErrInvalidStatus reports a task status outside the closed set.
var ErrInvalidStatus = errors.New("invalid task status")

// TaskStatuses enumerates the statuses a task may carry, in board order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusInProgress, StatusDone}
}

// IsValid reports whether s is one of the enumerated statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Label returns a short human readable name for the status.
func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in progress"
	case StatusDone:
		return "done"
	default:
		return string(s)
	}
}

// ParseTaskStatus converts user input to a status without coercing unknown values.
func ParseTaskStatus(value string) (TaskStatus, error) {
	status := TaskStatus(value)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// User is the canonical client-side user.
type User struct {
	ID        string    `json:"id"`
	LegacyID  int64     `json:"legacyId,omitempty"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName prefers the explicit name, then the username, then the email local part.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Project groups tasks and belongs to a user.
type Project struct {
	ID          string    `json:"id"`
	LegacyID    int64     `json:"legacyId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty"`
	Owner       *User     `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	// Tasks is only filled when the listing call returns tasks inline.
	Tasks []Task `json:"tasks,omitempty"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `json:"id"`
	LegacyID    int64      `json:"legacyId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ProjectID   string     `json:"projectId"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Assignee    *User      `json:"assignee,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
