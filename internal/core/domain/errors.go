package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("Not authenticated")
	ErrAuthCheckFailed  = errors.New("Authentication check failed")
	ErrSessionExpired   = errors.New("Session expired")
	ErrSuperseded       = errors.New("operation superseded by a newer dispatch")
	ErrUnknownRole      = errors.New("unknown role")
)

// Errors used by the contract stub backend.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// Fallback messages shown when the backend gives no reason of its own.
const (
	MsgRegistrationFailed = "Registration failed"
	MsgLoginFailed        = "Login failed"
)

// BackendError is a non-2xx answer from the marketplace backend.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// OperationError is returned by a rejected register or login. Message is the
// text stored in the session's error field.
type OperationError struct {
	Op      Operation
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

// FailureMessage picks the user-facing message for a failed operation: the
// backend's own message when it sent one, the fallback otherwise.
func FailureMessage(err error, fallback string) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
