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

const projectSelect = `SELECT p.id, p.name, p.description, p.status, p.created_at, p.updated_at,
        u.id, u.username, u.email, u.role, u.status, u.created_at, u.updated_at
    FROM projects p JOIN users u ON u.id = p.owner_id`

func scanProject(row interface{ Scan(...any) error }) (models.ProjectRecord, error) {
	var p models.ProjectRecord
	var owner models.UserRecord
	var created, updated, ownerCreated, ownerUpdated time.Time
	err := row.Scan(&p.IDProject, &p.Name, &p.Description, &p.Status, &created, &updated,
		&owner.IDUser, &owner.Username, &owner.Email, &owner.Role, &owner.Status, &ownerCreated, &ownerUpdated)
	if err != nil {
		return models.ProjectRecord{}, err
	}
	p.CreatedAt = formatTime(created)
	p.UpdatedAt = formatTime(updated)
	owner.CreatedAt = formatTime(ownerCreated)
	owner.UpdatedAt = formatTime(ownerUpdated)
	p.Owner = &owner
	p.UserID = strconv.FormatInt(owner.IDUser, 10)
	return p, nil
}

// ListProjects retrieves the projects owned by ownerID ordered by creation date.
func (s *Store) ListProjects(ctx context.Context, ownerID int64) ([]models.ProjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+` WHERE p.owner_id = ? ORDER BY p.created_at ASC, p.id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.ProjectRecord{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project owned by ownerID.
func (s *Store) CreateProject(ctx context.Context, ownerID int64, name, description string) (models.ProjectRecord, error) {
	if strings.TrimSpace(name) == "" {
		return models.ProjectRecord{}, inputError("project name must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(owner_id, name, description) VALUES(?, ?, ?)`, ownerID, strings.TrimSpace(name), strings.TrimSpace(description))
	if err != nil {
		return models.ProjectRecord{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ProjectRecord{}, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(ctx, ownerID, id)
}

// GetProject fetches a single project owned by ownerID.
func (s *Store) GetProject(ctx context.Context, ownerID, id int64) (models.ProjectRecord, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = ? AND p.owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectRecord{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.ProjectRecord{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject changes the fields set in patch.
func (s *Store) UpdateProject(ctx context.Context, ownerID, id int64, patch models.ProjectPatch) (models.ProjectRecord, error) {
	current, err := s.GetProject(ctx, ownerID, id)
	if err != nil {
		return models.ProjectRecord{}, err
	}

	name := current.Name
	description := current.Description
	status := current.Status
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return models.ProjectRecord{}, inputError("project name must not be empty")
		}
		name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil && strings.TrimSpace(*patch.Status) != "" {
		status = strings.TrimSpace(*patch.Status)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, status = ? WHERE id = ? AND owner_id = ?`, name, description, status, id, ownerID)
	if err != nil {
		return models.ProjectRecord{}, fmt.Errorf("update project: %w", err)
	}
	if err := affectedOne(res, "project"); err != nil {
		return models.ProjectRecord{}, err
	}
	return s.GetProject(ctx, ownerID, id)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return affectedOne(res, "project")
}
