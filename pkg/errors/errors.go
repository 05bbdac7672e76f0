package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error codes
const (
	ErrCodeAuth              = "AUTH_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// Auth builds an authentication failure: bad credentials, frozen or
// inactive account, or a concurrent session on another terminal.
func Auth(message string) *AppError {
	return New(ErrCodeAuth, message)
}

// Validation builds a rejected-input or rejected-transition failure.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func Internal(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternalError, message)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func HasCode(err error, code string) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

func IsAuth(err error) bool {
	return HasCode(err, ErrCodeAuth) || HasCode(err, ErrCodeRateLimitExceeded)
}

// IsValidation reports whether err belongs to the validation family.
// Lookups that miss, duplicates and shortfalls are validation failures
// from the caller's point of view.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case ErrCodeValidation, ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeInsufficientStock:
		return true
	}
	return false
}

func IsPermission(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}
