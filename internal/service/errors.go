package service

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a tagged outcome for every fallible operation. Callers branch
// on Code, never on message text.
type AppError struct {
	HTTPStatus int
	Code       string
	Message    string
	Retryable  bool
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeLedgerUnavailable = "LEDGER_UNAVAILABLE"
	CodeStorage           = "STORAGE_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

func Validation(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Code: CodeConflict, Message: msg}
}

// Unavailable marks a failure to reach the ledger. Distinct from NotFound:
// the certificate may exist, the answer is simply unknown right now.
func Unavailable(msg string, cause error) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Code: CodeLedgerUnavailable, Message: msg, Retryable: true, Cause: cause}
}

// Storage marks a local database or filesystem failure after the ledger
// write was already confirmed.
func Storage(msg string, cause error) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: CodeStorage, Message: msg, Cause: cause}
}

func Unauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func Internal(msg string, cause error) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: CodeInternal, Message: msg, Retryable: true, Cause: cause}
}
