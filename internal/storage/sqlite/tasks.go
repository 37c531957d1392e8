package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/models"
)

// TaskChanges carries task fields to write; nil fields are left alone. An AssignedTo
// of zero clears the assignee and an empty DueDate clears the due date.
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	DueDate     *string
	AssignedTo  *int64
	ProjectID   *int64
}

const taskSelect = `SELECT t.id, t.project_id, t.title, t.description, t.status, t.due_date, t.assigned_to, t.created_at, t.updated_at
    FROM tasks t JOIN projects p ON p.id = t.project_id`

func scanTask(row interface{ Scan(...any) error }) (models.TaskRecord, error) {
	var t models.TaskRecord
	var projectID int64
	var dueDate sql.NullString
	var assignedTo sql.NullInt64
	var created, updated time.Time
	if err := row.Scan(&t.IDTask, &projectID, &t.Title, &t.Description, &t.Status, &dueDate, &assignedTo, &created, &updated); err != nil {
		return models.TaskRecord{}, err
	}
	t.ProjectID = models.FlexID(strconv.FormatInt(projectID, 10))
	t.DueDate = dueDate.String
	t.AssignedTo = assignedTo.Int64
	t.CreatedAt = formatTime(created)
	t.UpdatedAt = formatTime(updated)
	return t, nil
}

func (s *Store) queryTasks(ctx context.Context, where string, args ...any) ([]models.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+` WHERE `+where+` ORDER BY t.project_id, t.status, t.position, t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.TaskRecord{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasks returns every task in projects owned by ownerID.
func (s *Store) ListTasks(ctx context.Context, ownerID int64) ([]models.TaskRecord, error) {
	return s.queryTasks(ctx, `p.owner_id = ?`, ownerID)
}

// ListProjectTasks returns the tasks of one project owned by ownerID.
func (s *Store) ListProjectTasks(ctx context.Context, ownerID, projectID int64) ([]models.TaskRecord, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.queryTasks(ctx, `p.owner_id = ? AND t.project_id = ?`, ownerID, projectID)
}

// GetTask retrieves a task by id if its project is owned by ownerID.
func (s *Store) GetTask(ctx context.Context, ownerID, id int64) (models.TaskRecord, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ? AND p.owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskRecord{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.TaskRecord{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a new task. Title and ProjectID are required and the status
// defaults to PENDING.
func (s *Store) CreateTask(ctx context.Context, ownerID int64, in TaskChanges) (models.TaskRecord, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return models.TaskRecord{}, inputError("task title must not be empty")
	}
	if in.ProjectID == nil {
		return models.TaskRecord{}, inputError("task project must be set")
	}
	if _, err := s.GetProject(ctx, ownerID, *in.ProjectID); err != nil {
		return models.TaskRecord{}, err
	}

	status := models.StatusPending
	if in.Status != nil {
		if !in.Status.IsValid() {
			return models.TaskRecord{}, fmt.Errorf("task status %q: %w", *in.Status, models.ErrInvalidStatus)
		}
		status = *in.Status
	}
	dueDate, err := dueDateValue(in.DueDate)
	if err != nil {
		return models.TaskRecord{}, err
	}
	assignedTo, err := s.assigneeValue(ctx, in.AssignedTo)
	if err != nil {
		return models.TaskRecord{}, err
	}
	description := ""
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}

	pos, err := s.nextPosition(ctx, *in.ProjectID, status)
	if err != nil {
		return models.TaskRecord{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, status, due_date, assigned_to, position) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		*in.ProjectID, strings.TrimSpace(*in.Title), description, string(status), dueDate, assignedTo, pos)
	if err != nil {
		return models.TaskRecord{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.TaskRecord{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, ownerID, id)
}

// UpdateTask applies changes and moves the task to the end of its new status column
// when the status changes.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id int64, changes TaskChanges) (models.TaskRecord, error) {
	current, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return models.TaskRecord{}, err
	}
	currentProject, _ := current.ProjectID.Int64()

	title := current.Title
	description := current.Description
	status := models.TaskStatus(current.Status)
	projectID := currentProject
	dueDate := nullable(current.DueDate)
	var assignedTo any
	if current.AssignedTo != 0 {
		assignedTo = current.AssignedTo
	}

	if changes.Title != nil {
		if strings.TrimSpace(*changes.Title) == "" {
			return models.TaskRecord{}, inputError("task title must not be empty")
		}
		title = strings.TrimSpace(*changes.Title)
	}
	if changes.Description != nil {
		description = strings.TrimSpace(*changes.Description)
	}
	if changes.Status != nil {
		if !changes.Status.IsValid() {
			return models.TaskRecord{}, fmt.Errorf("task status %q: %w", *changes.Status, models.ErrInvalidStatus)
		}
		status = *changes.Status
	}
	if changes.DueDate != nil {
		if dueDate, err = dueDateValue(changes.DueDate); err != nil {
			return models.TaskRecord{}, err
		}
	}
	if changes.AssignedTo != nil {
		if assignedTo, err = s.assigneeValue(ctx, changes.AssignedTo); err != nil {
			return models.TaskRecord{}, err
		}
	}
	if changes.ProjectID != nil && *changes.ProjectID != currentProject {
		if _, err := s.GetProject(ctx, ownerID, *changes.ProjectID); err != nil {
			return models.TaskRecord{}, err
		}
		projectID = *changes.ProjectID
	}

	var position any
	if string(status) != current.Status || projectID != currentProject {
		pos, err := s.nextPosition(ctx, projectID, status)
		if err != nil {
			return models.TaskRecord{}, err
		}
		position = pos
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET project_id = ?, title = ?, description = ?, status = ?, due_date = ?, assigned_to = ?, position = COALESCE(?, position) WHERE id = ?`,
		projectID, title, description, string(status), dueDate, assignedTo, position, id)
	if err != nil {
		return models.TaskRecord{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, ownerID, id)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id IN (SELECT id FROM projects WHERE owner_id = ?)`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOne(res, "task")
}

func (s *Store) nextPosition(ctx context.Context, projectID int64, status models.TaskStatus) (int64, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?`, projectID, string(status)).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}

func (s *Store) assigneeValue(ctx context.Context, assignedTo *int64) (any, error) {
	if assignedTo == nil || *assignedTo == 0 {
		return nil, nil
	}
	if _, err := s.GetUser(ctx, *assignedTo); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, inputError(fmt.Sprintf("assignee %d does not exist", *assignedTo))
		}
		return nil, err
	}
	return *assignedTo, nil
}

func dueDateValue(value *string) (any, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.DateOnly, trimmed); err != nil {
		return nil, inputError("due date must be YYYY-MM-DD")
	}
	return trimmed, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
