package models

// ProjectInput carries the fields for a new project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectPatch carries the fields to change on a project; nil fields are left alone.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// TaskInput carries the fields for a new task. DueDate is YYYY-MM-DD or empty and
// AssigneeID is a canonical user id or empty.
type TaskInput struct {
	Title       string
	Description string
	Status      TaskStatus
	DueDate     string
	AssigneeID  string
}

// TaskPatch carries the fields to change on a task; nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	DueDate     *string
	AssigneeID  *string
}
