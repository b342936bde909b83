package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers.
const (
	CodeConfigurationMissing = "CONFIGURATION_MISSING"
	CodeForbidden            = "FORBIDDEN"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeStorageFailure       = "STORAGE_FAILURE"
	CodePersistenceFailure   = "PERSISTENCE_FAILURE"
	CodeStateConflict        = "STATE_CONFLICT"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewFieldError is a validation failure pinned to a single input field.
func NewFieldError(field, message string) error {
	return NewValidationError(message, map[string]any{"field": field})
}

func NewConfigurationMissing(message string, details map[string]any) error {
	return NewDomainError(CodeConfigurationMissing, message, http.StatusUnprocessableEntity, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewStateConflict(message string, details map[string]any) error {
	return NewDomainError(CodeStateConflict, message, http.StatusConflict, details)
}

// NewStorageFailure wraps a blob store error.
func NewStorageFailure(err error, details map[string]any) error {
	return &DomainError{
		Code:       CodeStorageFailure,
		Message:    "file upload failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
		Err:        err,
	}
}

// NewPersistenceFailure wraps a database error; step names the write that failed.
func NewPersistenceFailure(step string, err error) error {
	return &DomainError{
		Code:       CodePersistenceFailure,
		Message:    fmt.Sprintf("failed to persist %s", step),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"step": step},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// WithDetail returns err with an extra detail attached when it is a DomainError.
func WithDetail(err error, key string, value any) error {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return err
	}
	details := make(map[string]any, len(domainErr.Details)+1)
	for k, v := range domainErr.Details {
		details[k] = v
	}
	details[key] = value
	clone := *domainErr
	clone.Details = details
	return &clone
}
