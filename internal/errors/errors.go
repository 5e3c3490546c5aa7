package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeConflict indicates a conflict with existing data (duplicate email).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeNotFound indicates a generic resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeUserNotFound indicates no user matched the supplied email or id.
	ErrCodeUserNotFound ErrorCode = "user_not_found"
	// ErrCodeIncorrectPassword indicates the password did not verify.
	ErrCodeIncorrectPassword ErrorCode = "incorrect_password"
	// ErrCodeForbidden indicates an authenticated principal lacks the required role.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeUnauthenticated indicates no authenticated session is present.
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// User-facing messages shared by the service and HTTP layers.
const (
	MsgDuplicateEmail    = "User with that email already exists!"
	MsgUserNotFound      = "User not found"
	MsgIncorrectPassword = "Incorrect password"
	MsgForbidden         = "You do not have permission to view this page."
	MsgUnauthenticated   = "Please log in to continue."
	MsgInternal          = "Something went wrong. Please try again."
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message, safe to show to users
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the form field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// DuplicateEmail reports that a user with the email already exists.
func DuplicateEmail(cause error) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: MsgDuplicateEmail, Field: "email", Cause: cause}
}

// UserNotFound reports that no user matched.
func UserNotFound() *AppError {
	return &AppError{Code: ErrCodeUserNotFound, Message: MsgUserNotFound, Field: "email"}
}

// IncorrectPassword reports a password mismatch.
func IncorrectPassword() *AppError {
	return &AppError{Code: ErrCodeIncorrectPassword, Message: MsgIncorrectPassword, Field: "password"}
}

// Forbidden reports a role mismatch.
func Forbidden() *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: MsgForbidden}
}

// Unauthenticated reports that the request carries no authenticated session.
func Unauthenticated() *AppError {
	return &AppError{Code: ErrCodeUnauthenticated, Message: MsgUnauthenticated}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Internal wraps an unexpected lower-layer fault. The cause is kept for logs;
// Message stays generic so nothing internal reaches the user.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: MsgInternal, Cause: cause}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsConflict checks if an error is a Conflict (duplicate email) error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsUserNotFound checks if an error is a UserNotFound error.
func IsUserNotFound(err error) bool { return isCode(err, ErrCodeUserNotFound) }

// IsIncorrectPassword checks if an error is an IncorrectPassword error.
func IsIncorrectPassword(err error) bool { return isCode(err, ErrCodeIncorrectPassword) }

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool { return isCode(err, ErrCodeForbidden) }

// IsUnauthenticated checks if an error is an Unauthenticated error.
func IsUnauthenticated(err error) bool { return isCode(err, ErrCodeUnauthenticated) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// GetCode returns the ErrorCode from an error. Errors that are not AppErrors
// are unexpected faults and report ErrCodeInternal.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// UserMessage returns the message safe to show to a user. Unknown errors and
// internal faults collapse to MsgInternal.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return MsgInternal
	}
	switch appErr.Code {
	case ErrCodeInternal, ErrCodeTimeout, ErrCodeCanceled:
		return MsgInternal
	default:
		return appErr.Message
	}
}
