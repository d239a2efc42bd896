package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"
	ErrorTypeInvalidInput    ErrorType = "INVALID_INPUT"
	ErrorTypeStore           ErrorType = "STORE"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	// Field names the offending input for INVALID_INPUT errors.
	Field string
	Err   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewUnauthenticated reports an operation that needs a signed-in identity.
func NewUnauthenticated(message string) error {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrorTypeUnauthenticated,
		Message: message,
	}
}

// NewInvalidInput reports a missing, empty or out-of-range field.
func NewInvalidInput(field, message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidInput,
		Message: message,
		Field:   field,
	}
}

// NewStore wraps a failure of the external store or session provider.
// op names the operation that was being attempted.
func NewStore(op string, err error) error {
	return &AppError{
		Type:    ErrorTypeStore,
		Message: op,
		Err:     err,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Field:   appErr.Field,
			Err:     appErr.Err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

// TypeOf returns the category of err, or "" when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsUnauthenticated checks if an error is an unauthenticated error
func IsUnauthenticated(err error) bool {
	return TypeOf(err) == ErrorTypeUnauthenticated
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return TypeOf(err) == ErrorTypeInvalidInput
}

// IsStore checks if an error is a store error
func IsStore(err error) bool {
	return TypeOf(err) == ErrorTypeStore
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return TypeOf(err) == ErrorTypeInternal
}

// FieldOf returns the offending field of an INVALID_INPUT error.
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeInvalidInput {
		return appErr.Field
	}
	return ""
}
