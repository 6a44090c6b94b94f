package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthExpired       = errors.New("session expired")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrOutOfStock        = errors.New("out of stock")
	ErrEmptyTransaction  = errors.New("transaction has no items")
	ErrAlreadyReturned   = errors.New("already returned")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrNetwork           = errors.New("network failure")
	ErrBackendRejected   = errors.New("backend rejected request")
	ErrMalformedResponse = errors.New("malformed response")
)

// Machine codes the backend puts next to its message.
const (
	CodeOutOfStock      = "OUT_OF_STOCK"
	CodeAlreadyReturned = "ALREADY_RETURNED"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeConflict        = "CONFLICT"
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendError is a non-2xx response. Message is the server's text as
// received.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrBackendRejected:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == CodeNotFound
	case ErrAlreadyReturned:
		return e.Code == CodeAlreadyReturned
	case ErrOutOfStock:
		return e.Code == CodeOutOfStock
	}
	return false
}

// UserMessage renders err the way an operator should see it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		if backendErr.Message != "" {
			return backendErr.Message
		}
		return http.StatusText(backendErr.Status)
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return "cannot reach the server, please try again"
	case errors.Is(err, ErrAuthExpired), errors.Is(err, ErrUnauthorized):
		return "session expired, please log in again"
	case errors.Is(err, ErrMalformedResponse):
		return "the server sent an unexpected response"
	}
	return err.Error()
}
