package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/models"
)

const userColumns = `id, username, email, role, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.UserRecord, error) {
	var u models.UserRecord
	var created, updated time.Time
	if err := row.Scan(&u.IDUser, &u.Username, &u.Email, &u.Role, &u.Status, &created, &updated); err != nil {
		return models.UserRecord{}, err
	}
	u.CreatedAt = formatTime(created)
	u.UpdatedAt = formatTime(updated)
	return u, nil
}

// CreateUser stores a user with a bcrypt hash of password. An empty username is
// derived from the email.
func (s *Store) CreateUser(ctx context.Context, username, email, password, role string) (models.UserRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.UserRecord{}, inputError("email and password required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if role == "" {
		role = "MEMBER"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users(username, email, password_hash, role) VALUES(?, ?, ?, ?)`, username, email, string(hash), role)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.UserRecord{}, fmt.Errorf("user %s: %w", email, ErrConflict)
		}
		return models.UserRecord{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// EnsureUser creates the user unless one with that email exists.
func (s *Store) EnsureUser(ctx context.Context, email, password, role string) (models.UserRecord, bool, error) {
	user, err := s.userByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.UserRecord{}, false, err
	}
	user, err = s.CreateUser(ctx, "", email, password, role)
	if err != nil {
		return models.UserRecord{}, false, err
	}
	s.logger.Info("seeded user", "email", email, "role", role)
	return user, true, nil
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.UserRecord, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) userByEmail(ctx context.Context, email string) (models.UserRecord, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Authenticate checks the password of the user with the given email.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.UserRecord, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email = ? AND status = 'ACTIVE'`, strings.TrimSpace(email)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.UserRecord{}, ErrInvalidCredentials
	}
	return s.userByEmail(ctx, email)
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.UserRecord{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
