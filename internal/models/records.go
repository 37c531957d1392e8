package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexID is a reference the backend sends either as a JSON string or a JSON number.
// It is kept in its decimal string form.
type FlexID string

// UnmarshalJSON accepts strings, integers and null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex id: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("flex id %s: not an integer", n)
	}
	*f = FlexID(n.String())
	return nil
}

// Int64 returns the numeric value, or false when the id is not a decimal integer.
func (f FlexID) Int64() (int64, bool) {
	if f == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UserRecord is a user as the backend returns it.
type UserRecord struct {
	IDUser    int64  `json:"idUser,omitempty"`
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ProjectRecord is a project as the backend returns it.
type ProjectRecord struct {
	IDProject   int64        `json:"idProject,omitempty"`
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      string       `json:"status,omitempty"`
	UserID      string       `json:"userId,omitempty"`
	Owner       *UserRecord  `json:"owner,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
	Tasks       []TaskRecord `json:"tasks,omitempty"`
}

// TaskRecord is a task as the backend returns it. Timestamps are usually absent.
type TaskRecord struct {
	IDTask         int64  `json:"idTask,omitempty"`
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Status         string `json:"status"`
	DueDate        string `json:"dueDate,omitempty"`
	ProjectID      FlexID `json:"projectId,omitempty"`
	AssignedTo     int64  `json:"assignedTo,omitempty"`
	AssignedUserID string `json:"assignedUserId,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}
