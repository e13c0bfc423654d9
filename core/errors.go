package core

import "github.com/pkg/errors"

// ErrorKind classifies an application failure so the boundary layer can map it
// to a status code without inspecting message strings.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindConflict
	KindAuthentication
	KindAuthorization
	KindState
)

// Error is a typed application failure raised by the entity services.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func NotFoundError(msg string) *Error       { return NewError(KindNotFound, msg) }
func ConflictError(msg string) *Error       { return NewError(KindConflict, msg) }
func AuthenticationError(msg string) *Error { return NewError(KindAuthentication, msg) }
func AuthorizationError(msg string) *Error  { return NewError(KindAuthorization, msg) }
func StateError(msg string) *Error          { return NewError(KindState, msg) }

// IsKind reports whether err (or its cause chain) is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
