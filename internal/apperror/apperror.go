// Package apperror defines the error kinds surfaced at the service boundary.
// Handlers branch on the sentinels with errors.Is.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStorage         = errors.New("storage failure")
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel kind
	Message string       // human-readable message
	Fields  []FieldError // field-level problems, validation only
	cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *AppError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.cause}
}

// Cause returns the wrapped collaborator error, if any
func (e *AppError) Cause() error {
	return e.cause
}

func Validation(fields ...FieldError) *AppError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	message := "invalid input"
	if len(msgs) > 0 {
		message = "invalid input: " + strings.Join(msgs, "; ")
	}
	return &AppError{Err: ErrValidation, Message: message, Fields: fields}
}

func ValidationFailed(field, message string) *AppError {
	return Validation(FieldError{Field: field, Message: message})
}

// NotFound does not distinguish a missing record from one owned by someone else
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Unauthenticated(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{Err: ErrUnauthenticated, Message: message}
}

// Storage wraps a persistence failure. The message stays generic; the cause
// is kept for logging.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("failed to %s", op),
		cause:   cause,
	}
}

// FieldsOf returns the field-level problems carried by err, or nil
func FieldsOf(err error) []FieldError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
