package auth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidEmail is the Kind of a validation failure on the email field.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is the Kind of a validation failure on the password field.
	ErrWeakPassword = errors.New("weak password")
	// ErrNoSession is returned when a token does not resolve to a live session.
	ErrNoSession = errors.New("no valid session")
)

// ErrEmailTaken indicates email is already registered
type ErrEmailTaken struct {
	Email string
}

func (e *ErrEmailTaken) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials. Unknown email and
// wrong password are indistinguishable.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
	Email  string
}

func (e *ErrUserNotFound) Error() string {
	if e.Email != "" {
		return fmt.Sprintf("user not found: %s", e.Email)
	}
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates input validation failure
type ErrValidation struct {
	Field   string
	Message string
	Kind    error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

func (e *ErrValidation) Unwrap() error {
	return e.Kind
}
