// Package errors defines the error taxonomy shared by the whole service.
// Callers classify failures with errors.Is against the sentinels below.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation covers malformed or missing input. Operations failing
	// with it guarantee no side effect took place.
	ErrValidation = fmt.Errorf("validation failed")

	// ErrStorage covers an unavailable or failing backing store. The
	// operation is aborted and nothing is persisted.
	ErrStorage = fmt.Errorf("storage unavailable")

	// ErrNotFound covers operations referencing an unknown id where
	// existence is required.
	ErrNotFound = fmt.Errorf("not found")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Storagef wraps ErrStorage with a formatted detail message.
func Storagef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStorage}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// MapToHTTPStatus converts a domain error into the HTTP status code the API
// layer should answer with. Unknown errors map to 500.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
