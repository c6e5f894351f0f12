// Package apperror maps errors to the codes and statuses returned to API
// clients.
package apperror

import (
	"errors"
	"net/http"

	"github.com/fixora/spaceships/internal/domain"
)

// UnexpectedMessage is shown for every error that is not a known failure
const UnexpectedMessage = "An unexpected error occurred."

type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized   = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: UnexpectedMessage, Status: http.StatusInternalServerError}
)

func NewBadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusBadRequest}
}

func NewValidation(fields map[string]string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: "Validation failed", Status: http.StatusBadRequest, Fields: fields}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: http.StatusConflict}
}

func NewIntegrityViolation(message string) *AppError {
	return &AppError{Code: "DATA_INTEGRITY_VIOLATION", Message: message, Status: http.StatusBadRequest}
}

// MapError turns any error into the AppError sent to the client. Unknown
// errors never leak their text.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.KindValidation:
			return NewValidation(domainErr.Fields)
		case domain.KindConflict:
			return NewConflict(domainErr.Message)
		case domain.KindNotFound:
			return NewNotFound(domainErr.Message)
		case domain.KindIntegrityViolation:
			return NewIntegrityViolation(domainErr.Message)
		}
	}

	return ErrInternalServer
}

// IsUnexpected reports whether err maps to a server error
func IsUnexpected(err error) bool {
	return MapError(err).Status >= http.StatusInternalServerError
}
