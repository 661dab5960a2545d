package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

// Retryable reports whether the failure is transient and worth offering a retry
// to the user. Stores never retry on their own.
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeNetwork
}

const (
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeNetwork         = "NETWORK_ERROR"
	ErrCodeServer          = "SERVER_ERROR"
	ErrCodeUnknown         = "UNKNOWN_ERROR"
)

func UnauthenticatedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthenticated, message, http.StatusUnauthorized)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

func NetworkError(message string) *AppError {
	return NewAppError(ErrCodeNetwork, message, 0)
}

func ServerError(message string) *AppError {
	return NewAppError(ErrCodeServer, message, http.StatusInternalServerError)
}

func UnknownError(message string) *AppError {
	return NewAppError(ErrCodeUnknown, message, http.StatusInternalServerError)
}

// FromStatusCode maps a gateway HTTP status to the client error taxonomy.
func FromStatusCode(statusCode int, message string) *AppError {
	var code string

	switch {
	case statusCode == http.StatusUnauthorized:
		code = ErrCodeUnauthenticated
	case statusCode == http.StatusNotFound:
		code = ErrCodeNotFound
	case statusCode == http.StatusConflict:
		code = ErrCodeConflict
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		code = ErrCodeValidation
	case statusCode >= http.StatusInternalServerError:
		code = ErrCodeServer
	default:
		code = ErrCodeUnknown
	}

	return NewAppError(code, message, statusCode)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
