package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("snippet", "abc"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("title", "required"), ErrValidation, true},
		{"Unauthenticated wraps ErrUnauthenticated", Unauthenticated(""), ErrUnauthenticated, true},
		{"Storage wraps ErrStorage", Storage("save snippet", dbErr), ErrStorage, true},
		{"Storage exposes cause", Storage("save snippet", dbErr), dbErr, true},
		{"wrapped twice still matches", fmt.Errorf("outer: %w", NotFound("snippet", "abc")), ErrNotFound, true},
		{"NotFound is not validation", NotFound("snippet", "abc"), ErrValidation, false},
		{"Validation is not storage", ValidationFailed("code", "required"), ErrStorage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("Expected errors.Is = %v, got %v", tt.wantMatch, got)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"not found", NotFound("snippet", "abc"), "snippet not found with id abc"},
		{"unauthenticated default", Unauthenticated(""), "authentication required"},
		{"storage hides cause", Storage("list snippets", errors.New("pq: password authentication failed")), "failed to list snippets"},
		{"validation lists fields", Validation(FieldError{"title", "is required"}, FieldError{"language", "is not supported"}), "invalid input: title: is required; language: is not supported"},
		{"validation without fields", Validation(), "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFieldsOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create: %w", ValidationFailed("language", "must be one of the supported languages"))
	fields := FieldsOf(err)
	if len(fields) != 1 || fields[0].Field != "language" {
		t.Errorf("Expected language field error, got %v", fields)
	}

	if FieldsOf(errors.New("plain")) != nil {
		t.Error("Expected nil fields for a plain error")
	}
}

func TestCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	if got := Storage("x", cause).Cause(); got != cause {
		t.Errorf("Expected cause %v, got %v", cause, got)
	}
	if NotFound("snippet", "1").Cause() != nil {
		t.Error("Expected nil cause")
	}
}
