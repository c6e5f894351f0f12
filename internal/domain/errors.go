package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the expected failures of the catalog
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindConflict           ErrorKind = "conflict"
	KindNotFound           ErrorKind = "not_found"
	KindIntegrityViolation ErrorKind = "integrity_violation"
)

// DuplicateNameMessage is returned whenever a name is already taken
const DuplicateNameMessage = "A spaceship with the same name already exists."

// DomainError represents a domain-specific error
type DomainError struct {
	Kind    ErrorKind
	Message string
	// Field names the column an integrity violation was raised for.
	Field string
	// Fields maps field names to messages for validation failures.
	Fields map[string]string
	Cause  error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError of the same kind, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrValidation         = &DomainError{Kind: KindValidation, Message: "validation failed"}
	ErrConflict           = &DomainError{Kind: KindConflict, Message: DuplicateNameMessage}
	ErrNotFound           = &DomainError{Kind: KindNotFound, Message: "spaceship not found"}
	ErrIntegrityViolation = &DomainError{Kind: KindIntegrityViolation, Message: "data integrity violation"}
)

// NewValidationError reports missing or malformed request fields
func NewValidationError(fields map[string]string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// NewConflictError reports a duplicate spaceship name
func NewConflictError(cause error) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Message: DuplicateNameMessage,
		Cause:   cause,
	}
}

// NewNotFoundError reports a missing spaceship
func NewNotFoundError(id int64) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("spaceship %d not found", id),
	}
}

// NewIntegrityViolation reports a store rejection of a required field. The
// message is user-facing when the field is one the catalog knows about.
func NewIntegrityViolation(field string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindIntegrityViolation,
		Message: integrityMessage(field),
		Field:   field,
		Cause:   cause,
	}
}

func integrityMessage(field string) string {
	switch field {
	case "name", "type", "source":
		return fmt.Sprintf("The %s field cannot be null. Please provide a valid %s.", field, field)
	default:
		return "Data integrity violation."
	}
}

// KindOf returns the kind of the first DomainError in err's chain, or the
// empty kind when err is not a domain error.
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
