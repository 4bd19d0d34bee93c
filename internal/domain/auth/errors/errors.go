package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving the service layer matches exactly one of
// them through errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidGrant    = errors.New("invalid grant")
)

// User-facing errors. Credential failures share one value so that callers
// cannot tell an unknown email from a wrong password.
var (
	ErrInvalidCredentials  = NewUnauthorized("Invalid email or password")
	ErrInvalidRefreshToken = NewUnauthorized("Invalid refresh token")
	ErrSessionExpired      = NewUnauthorized("Session expired")
	ErrInvalidGoogleToken  = NewUnauthorized("Invalid Google token")
	ErrNotLoggedIn         = NewUnauthorized("You are not logged in to do this")
	ErrStaleSession        = NewUnauthorized("Session was already rotated")
	ErrUserExists          = NewConflict("User already exists")
	ErrSessionNotFound     = NewNotFound("Session not found")
	ErrVerificationFailed  = NewInvalidArgument("Failed to get or verify token")
)

// Error carries a message meant for the client next to its kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// FieldError describes one rejected input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError is an invalid-argument error listing every rejected field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "Validation failed"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func NewUnauthorized(msg string) error {
	return newError(ErrUnauthorized, msg)
}

func NewConflict(msg string) error {
	return newError(ErrAlreadyExists, msg)
}

func NewNotFound(msg string) error {
	return newError(ErrNotFound, msg)
}

func NewInvalidArgument(msg string) error {
	return newError(ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

// Message returns the text that may be shown to a client. Errors without a
// client message collapse to a generic one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	switch {
	case IsInvalidToken(err):
		return ErrNotLoggedIn.Error()
	case IsUnauthorized(err), IsInvalidArgument(err), IsNotFound(err), IsAlreadyExists(err):
		return err.Error()
	default:
		return "Internal Server Error"
	}
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsInvalidGrant(err error) bool {
	return errors.Is(err, ErrInvalidGrant)
}
