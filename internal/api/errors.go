package api

import (
	"errors"
	"fmt"
)

// Error is a failed backend call. Status is the HTTP status of the response, or 0 when
// no response reached the client.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

const (
	msgUnreachable = "unable to reach server"
	msgServer      = "server error"
)

// IsConnectivity reports whether err is a failure to reach the backend at all.
func IsConnectivity(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// IsUnauthorized reports whether the backend rejected the credentials or token.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 401
}

// Message extracts the user facing message from err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
