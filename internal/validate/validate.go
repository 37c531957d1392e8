// Package validate checks user input before it is sent to the backend.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"taskboard/internal/models"
)

const (
	MaxTitleLength    = 200
	MinPasswordLength = 6
)

// Error is a field level validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}

// Credentials checks a login form.
func Credentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &Error{Field: "email", Message: "email is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &Error{Field: "email", Message: "email is not valid"}
	}
	if password == "" {
		return &Error{Field: "password", Message: "password is required"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &Error{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ProjectInput checks a new project.
func ProjectInput(input models.ProjectInput) error {
	return projectName(input.Name)
}

// ProjectPatch checks the fields set in patch.
func ProjectPatch(patch models.ProjectPatch) error {
	if patch.Name != nil {
		return projectName(*patch.Name)
	}
	return nil
}

func projectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &Error{Field: "name", Message: "project name is required"}
	}
	return nil
}

// TaskInput checks a new task. An empty status is allowed and defaults to pending.
func TaskInput(input models.TaskInput) error {
	if err := title(input.Title); err != nil {
		return err
	}
	if input.Status != "" {
		if err := status(input.Status); err != nil {
			return err
		}
	}
	return dueDate(input.DueDate)
}

// TaskPatch checks the fields set in patch.
func TaskPatch(patch models.TaskPatch) error {
	if patch.Title != nil {
		if err := title(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		if err := status(*patch.Status); err != nil {
			return err
		}
	}
	if patch.DueDate != nil {
		return dueDate(*patch.DueDate)
	}
	return nil
}

func title(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return &Error{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(value) > MaxTitleLength {
		return &Error{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

func status(value models.TaskStatus) error {
	if !value.IsValid() {
		return &Error{Field: "status", Message: fmt.Sprintf("status %q is not one of PENDING, IN_PROGRESS, DONE", value)}
	}
	return nil
}

func dueDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return &Error{Field: "dueDate", Message: "due date must be YYYY-MM-DD"}
	}
	return nil
}
