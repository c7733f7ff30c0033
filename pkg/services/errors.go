// Package services provides the business logic layer over the stores and the
// execution engine.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPatternNil          = errors.New("pattern cannot be nil")
	ErrEmptyAgentIDs       = errors.New("pattern must reference at least one agent")
	ErrEmptyTaskIDs        = errors.New("pattern must reference at least one task")
	ErrDuplicateAgentIDs   = errors.New("duplicate agent ids in pattern")
	ErrDuplicateTaskIDs    = errors.New("duplicate task ids in pattern")
	ErrInvalidWorkflowType = errors.New("invalid workflow type")
	ErrPatternNotRunnable  = errors.New("pattern is archived and not executable")

	// Business Logic Conflicts (409 Conflict).
	ErrPatternHasActiveExecutions = errors.New("pattern has non-terminal executions")
	ErrStructuralChangeMidFlight  = errors.New("cannot change agent or task lists while executions are in flight")
	ErrExecutionNotTerminal       = errors.New("execution is not terminal")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPatternNil) ||
		errors.Is(err, ErrEmptyAgentIDs) ||
		errors.Is(err, ErrEmptyTaskIDs) ||
		errors.Is(err, ErrDuplicateAgentIDs) ||
		errors.Is(err, ErrDuplicateTaskIDs) ||
		errors.Is(err, ErrInvalidWorkflowType) ||
		errors.Is(err, ErrPatternNotRunnable)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrPatternHasActiveExecutions) ||
		errors.Is(err, ErrStructuralChangeMidFlight) ||
		errors.Is(err, ErrExecutionNotTerminal)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new conflict error with context.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
