// Package apperr defines the error kinds shared by the service layers and
// their mapping to client-facing codes.
package apperr

import (
	"errors"
	"fmt"
)

// Base error kinds, checked with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// Constraint codes carried by validation errors.
const (
	ConstraintRequired             = "required"
	ConstraintDayOfWeekRange       = "day_of_week_range"
	ConstraintDurationRange        = "duration_range"
	ConstraintLevelRange           = "level_range"
	ConstraintUnknownTopic         = "unknown_topic"
	ConstraintUnknownSubject       = "unknown_subject"
	ConstraintUnknownObjective     = "unknown_objective"
	ConstraintTopicSubjectMismatch = "topic_subject_mismatch"
	ConstraintDateRange            = "date_range"
	ConstraintInvalidValue         = "invalid_value"
)

// Error is a domain error with the operation that failed and, for
// validation failures, the offending field and violated constraint.
type Error struct {
	Op         string
	Kind       error
	Field      string
	Constraint string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the error kind as well as the wrapped error.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// Validation builds a validation error for a field.
func Validation(op, field, constraint, message string) *Error {
	return &Error{Op: op, Kind: ErrValidation, Field: field, Constraint: constraint, Message: message}
}

// NotFound builds a not-found error.
func NotFound(op, message string) *Error {
	return &Error{Op: op, Kind: ErrNotFound, Message: message}
}

// Unavailable wraps a failure of an external dependency.
func Unavailable(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrUnavailable, Message: "dependency unavailable", Err: err}
}

// Code returns the client-facing error code for err.
func Code(err error) string {
	var ae *Error
	switch {
	case errors.As(err, &ae) && ae.Constraint != "":
		return ae.Constraint
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnavailable):
		return "generation_failed"
	default:
		return "internal_error"
	}
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field
	}
	return ""
}
