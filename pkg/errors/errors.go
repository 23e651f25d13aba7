package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeDataIntegrity indicates persisted data that cannot be decoded
	ErrorTypeDataIntegrity ErrorType = "DATA_INTEGRITY"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Code is the client-facing error identifier.
type Code string

const (
	CodeUserNotFound        Code = "UserNotFound"
	CodeFacilityNotFound    Code = "FacilityNotFound"
	CodeReservationNotFound Code = "ReservationNotFound"
	CodeInvalidTimeRange    Code = "InvalidTimeRange"
	CodeSlotConflict        Code = "SlotConflict"
	CodeDataIntegrity       Code = "DataIntegrityError"
	CodeStoreError          Code = "StoreError"
	CodeValidation          Code = "ValidationError"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code Code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeValidation,
		Message: message,
	}
}

// NewInvalidTimeRangeError is returned when a booking starts in the past
func NewInvalidTimeRangeError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeInvalidTimeRange,
		Message: message,
	}
}

// NewSlotConflictError is returned when a booking overlaps an existing one
func NewSlotConflictError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeSlotConflict,
		Message: message,
		Err:     err,
	}
}

// NewDataIntegrityError creates an error for stored values that fail to decode
func NewDataIntegrityError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeDataIntegrity,
		Code:    CodeDataIntegrity,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal (store) error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeStoreError,
		Message: message,
		Err:     err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
