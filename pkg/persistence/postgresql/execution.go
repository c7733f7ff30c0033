package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , pattern_id
  , status
  , current_step
  , total_steps
  , progress_percentage
  , active_agents
  , completed_tasks
  , failed_tasks
  , step_outputs
  , iteration_count
  , context
  , error
  , started_at
  , updated_at
  , completed_at
`

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) List(ctx context.Context) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions ORDER BY started_at DESC`

	return r.queryExecutions(ctx, query)
}

func (r *ExecutionRepository) ListByPattern(ctx context.Context, patternID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE pattern_id = $1 ORDER BY started_at DESC`

	return r.queryExecutions(ctx, query, patternID)
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	activeAgentsJSON, err := json.Marshal(execution.ActiveAgents)
	if err != nil {
		return fmt.Errorf("failed to marshal active agents: %w", err)
	}

	completedTasksJSON, err := json.Marshal(execution.CompletedTasks)
	if err != nil {
		return fmt.Errorf("failed to marshal completed tasks: %w", err)
	}

	failedTasksJSON, err := json.Marshal(execution.FailedTasks)
	if err != nil {
		return fmt.Errorf("failed to marshal failed tasks: %w", err)
	}

	stepOutputsJSON, err := json.Marshal(execution.StepOutputs)
	if err != nil {
		return fmt.Errorf("failed to marshal step outputs: %w", err)
	}

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	query := `
		INSERT INTO workflow_executions (id, pattern_id, status, current_step,
total_steps, progress_percentage, active_agents, completed_tasks, failed_tasks,
step_outputs, iteration_count, context, error, started_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			total_steps = EXCLUDED.total_steps,
			progress_percentage = EXCLUDED.progress_percentage,
			active_agents = EXCLUDED.active_agents,
			completed_tasks = EXCLUDED.completed_tasks,
			failed_tasks = EXCLUDED.failed_tasks,
			step_outputs = EXCLUDED.step_outputs,
			iteration_count = EXCLUDED.iteration_count,
			context = EXCLUDED.context,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.PatternID,
		execution.Status,
		execution.CurrentStep,
		execution.TotalSteps,
		execution.ProgressPercentage,
		activeAgentsJSON,
		completedTasksJSON,
		failedTasksJSON,
		stepOutputsJSON,
		execution.IterationCount,
		contextJSON,
		execution.Error,
		execution.StartedAt,
		execution.UpdatedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_executions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
	}

	return nil
}

func scanExecution(row interface{ Scan(...any) error }) (*models.WorkflowExecution, error) {
	var (
		execution          models.WorkflowExecution
		activeAgentsJSON   []byte
		completedTasksJSON []byte
		failedTasksJSON    []byte
		stepOutputsJSON    []byte
		contextJSON        []byte
		completedAt        sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.PatternID,
		&execution.Status,
		&execution.CurrentStep,
		&execution.TotalSteps,
		&execution.ProgressPercentage,
		&activeAgentsJSON,
		&completedTasksJSON,
		&failedTasksJSON,
		&stepOutputsJSON,
		&execution.IterationCount,
		&contextJSON,
		&execution.Error,
		&execution.StartedAt,
		&execution.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalColumn(activeAgentsJSON, &execution.ActiveAgents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active agents: %w", err)
	}

	if err := unmarshalColumn(completedTasksJSON, &execution.CompletedTasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed tasks: %w", err)
	}

	if err := unmarshalColumn(failedTasksJSON, &execution.FailedTasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed tasks: %w", err)
	}

	if err := unmarshalColumn(stepOutputsJSON, &execution.StepOutputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step outputs: %w", err)
	}

	if err := unmarshalColumn(contextJSON, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}

// unmarshalColumn tolerates NULL jsonb columns.
func unmarshalColumn(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}

