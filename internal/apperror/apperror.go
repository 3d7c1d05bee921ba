package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel category (ErrNotFound, ErrValidation, ...)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing (or not-owned — the two are
// indistinguishable to the caller) resource. HTTP handlers map this to 404.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for missing or invalid credentials.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldErrors aggregates validation failures across multiple fields.
//
// The field validators are independent and composable: a request with three
// invalid fields must report three errors, one per field, not fail fast on
// the first. Services collect individual *AppError values into a
// FieldErrors and return it (via ErrOrNil) only if anything was added.
//
// It implements error and unwraps to ErrValidation, so
// errors.Is(err, ErrValidation) works the same as for a single AppError.
type FieldErrors struct {
	Errors []*AppError
}

func (e *FieldErrors) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *FieldErrors) Unwrap() error {
	return ErrValidation
}

// Add appends a field-level error. Nil errors are ignored, so callers can
// write Add(ValidateTitle(title)) without checking first.
func (e *FieldErrors) Add(err *AppError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// AddField is shorthand for Add(ValidationFailed(field, message)).
func (e *FieldErrors) AddField(field, message string) {
	e.Errors = append(e.Errors, ValidationFailed(field, message))
}

// ErrOrNil returns the aggregate as an error, or nil if no field failed.
// Returning a typed nil pointer as error would be non-nil — this avoids
// that classic trap.
func (e *FieldErrors) ErrOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Fields flattens the aggregate into a field → message map for the wire.
// If the same field somehow failed twice, the first message wins.
func (e *FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := m[fe.Field]; !ok {
			m[fe.Field] = fe.Message
		}
	}
	return m
}
