// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrSongNotInQueue is returned when a UniqueID does not name a queue slot.
	// Callers treat it as a silent no-op.
	ErrSongNotInQueue = errors.New("song not in queue")

	// ErrEmptySelection is returned when a reorder is requested with no rows selected.
	ErrEmptySelection = errors.New("empty selection")

	// ErrQueueEmpty is returned when queue navigation is attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrEndOfQueue is returned when advancing past the last song without repeat.
	ErrEndOfQueue = errors.New("end of queue reached")

	// ErrStartOfQueue is returned when stepping back before the first song.
	ErrStartOfQueue = errors.New("start of queue reached")

	// ErrPlayerNotRunning is returned when a command needs a live player process.
	ErrPlayerNotRunning = errors.New("player process not running")

	// ErrPlayerAlreadyRunning is returned when a second process would be started.
	ErrPlayerAlreadyRunning = errors.New("player process already running")

	// ErrInvalidHotkey is returned when a hotkey or accelerator cannot be parsed.
	ErrInvalidHotkey = errors.New("invalid hotkey")

	// ErrShortcutTaken is returned when the OS refuses an accelerator registration.
	ErrShortcutTaken = errors.New("shortcut already registered")

	// ErrMediaKeysUnsupported is returned on platforms without a media-key surface.
	ErrMediaKeysUnsupported = errors.New("media keys not supported on this platform")

	// ErrUnsupportedFormat is returned when a local file is not a supported audio format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")
)

// PlayerProcessError represents a failure of the external player process.
type PlayerProcessError struct {
	Op      string // Operation that failed (e.g., "start", "command", "quit")
	Binary  string // Player executable
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PlayerProcessError) Error() string {
	if e.Binary != "" {
		return fmt.Sprintf("player %s failed (%s): %s", e.Op, e.Binary, e.Message)
	}
	return fmt.Sprintf("player %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlayerProcessError) Unwrap() error {
	return e.Err
}

// NewPlayerProcessError creates a new PlayerProcessError.
func NewPlayerProcessError(op, binary, message string, err error) *PlayerProcessError {
	return &PlayerProcessError{
		Op:      op,
		Binary:  binary,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load")
	Type    string // Repository type (e.g., "queue", "settings")
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "PlayerService", "QueueService")
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
