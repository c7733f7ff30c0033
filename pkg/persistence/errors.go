package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPatternNotFound indicates a pattern was not found by the given identifier.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrPatternAlreadyExists indicates a pattern with the same identifier already exists.
	ErrPatternAlreadyExists = errors.New("pattern already exists")
)

// PatternError wraps pattern-related errors with additional context.
type PatternError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	PatternID string // Pattern ID if applicable
	Err       error  // Underlying error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s operation failed for pattern %s: %v", e.Op, e.PatternID, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func (e *PatternError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPatternError creates a new pattern error with context.
func NewPatternError(op, patternID string, err error) *PatternError {
	return &PatternError{
		Op:        op,
		PatternID: patternID,
		Err:       err,
	}
}

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsPatternNotFound checks if an error indicates a pattern was not found.
func IsPatternNotFound(err error) bool {
	return errors.Is(err, ErrPatternNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
