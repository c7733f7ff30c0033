package services

import (
	"context"
	"fmt"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
)

var (
	// ErrExecutionNotFound is returned when an execution is not found.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// Execution is the service over the execution store and communication log.
type Execution struct {
	persistence persistence.Persistence
	aborter     ExecutionAborter
}

// NewExecution creates a new execution service.
func NewExecution(p persistence.Persistence, aborter ExecutionAborter) *Execution {
	return &Execution{
		persistence: p,
		aborter:     aborter,
	}
}

// FetchByID retrieves an execution by its ID.
func (s *Execution) FetchByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution == nil {
		return nil, ErrExecutionNotFound
	}

	return execution, nil
}

// List retrieves all executions, newest first, independent of pattern.
func (s *Execution) List(ctx context.Context) ([]*models.WorkflowExecution, error) {
	executions, err := s.persistence.ExecutionRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Abort signals the engine to stop an execution at the next safe point. A
// no-op when the execution is already terminal.
func (s *Execution) Abort(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution.Status.Terminal() {
		return execution, nil
	}

	if err := s.aborter.Abort(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to abort execution %s: %w", id, err)
	}

	return s.FetchByID(ctx, id)
}

// Delete removes a terminal execution and cascades its communication log.
// Deleting a non-terminal execution is a conflict; the caller must abort
// first.
func (s *Execution) Delete(ctx context.Context, id string) error {
	execution, err := s.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	if !execution.Status.Terminal() {
		return NewConflictError(
			"Delete",
			"EXECUTION_NOT_TERMINAL",
			fmt.Sprintf("execution %s is %s; abort it before deleting", id, execution.Status),
			ErrExecutionNotTerminal,
		)
	}

	if err := s.persistence.CommunicationRepository().DeleteByExecution(ctx, id); err != nil {
		return fmt.Errorf("failed to delete communications for execution %s: %w", id, err)
	}

	if err := s.persistence.ExecutionRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete execution %s: %w", id, err)
	}

	return nil
}

// Communications returns an execution's message log ordered by timestamp.
func (s *Execution) Communications(ctx context.Context, executionID string) ([]*models.AgentCommunication, error) {
	if _, err := s.FetchByID(ctx, executionID); err != nil {
		return nil, err
	}

	comms, err := s.persistence.CommunicationRepository().ListByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications for execution %s: %w", executionID, err)
	}

	return comms, nil
}
