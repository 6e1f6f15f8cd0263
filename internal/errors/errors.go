package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnavailable  ErrorType = "UNAVAILABLE"
	ErrConflict     ErrorType = "CONFLICT"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// As is errors.As from the standard library
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func isType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsUnavailable checks if a backend (queue, store) could not be reached
func IsUnavailable(err error) bool {
	return isType(err, ErrUnavailable)
}

// IsConflict checks if the error reports an illegal state transition
func IsConflict(err error) bool {
	return isType(err, ErrConflict)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// NewUnavailableError creates a new unavailable error
func NewUnavailableError(message string, err error) *AppError {
	return New(ErrUnavailable, message, err)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, err error) *AppError {
	return New(ErrConflict, message, err)
}

// NotFoundError represents a not found error for a specific resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewResourceNotFoundError wraps a NotFoundError into an AppError so IsNotFound matches it
func NewResourceNotFoundError(resource, id string) error {
	return NewNotFoundError(resource+" not found", &NotFoundError{Resource: resource, ID: id})
}

// FolderResolutionError is returned when a sync folder cannot be resolved or listed
type FolderResolutionError struct {
	FolderPath string
	Err        error
}

func (e *FolderResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve folder %s: %v", e.FolderPath, e.Err)
}

func (e *FolderResolutionError) Unwrap() error {
	return e.Err
}

// NewFolderResolutionError creates a new FolderResolutionError
func NewFolderResolutionError(folderPath string, err error) error {
	return &FolderResolutionError{
		FolderPath: folderPath,
		Err:        err,
	}
}
