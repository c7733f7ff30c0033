package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
)

// PatternRepository handles workflow pattern database operations.
type PatternRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPatternRepository creates a new pattern repository.
func NewPatternRepository(db *sql.DB, logger *slog.Logger) *PatternRepository {
	return &PatternRepository{db: db, logger: logger}
}

const patternColumns = `
	id
  , name
  , description
  , workflow_type
  , agent_ids
  , task_ids
  , user_objective
  , project_directory
  , status
  , max_iterations
  , max_parallel
  , step_timeout_ns
  , retry_failed_steps
  , continue_on_failure
  , created_at
  , updated_at
`

func (r *PatternRepository) GetByID(ctx context.Context, id string) (*models.WorkflowPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM workflow_patterns WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	pattern, err := scanPattern(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan pattern: %w", err)
	}

	return pattern, nil
}

func (r *PatternRepository) GetAll(ctx context.Context) ([]*models.WorkflowPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM workflow_patterns ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	patterns := make([]*models.WorkflowPattern, 0)

	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}

		patterns = append(patterns, pattern)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return patterns, nil
}

func (r *PatternRepository) Save(ctx context.Context, pattern *models.WorkflowPattern) error {
	agentIDsJSON, err := json.Marshal(pattern.AgentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal agent ids: %w", err)
	}

	taskIDsJSON, err := json.Marshal(pattern.TaskIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal task ids: %w", err)
	}

	query := `
		INSERT INTO workflow_patterns (id, name, description, workflow_type,
agent_ids, task_ids, user_objective, project_directory, status, max_iterations,
max_parallel, step_timeout_ns, retry_failed_steps, continue_on_failure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			workflow_type = EXCLUDED.workflow_type,
			agent_ids = EXCLUDED.agent_ids,
			task_ids = EXCLUDED.task_ids,
			user_objective = EXCLUDED.user_objective,
			project_directory = EXCLUDED.project_directory,
			status = EXCLUDED.status,
			max_iterations = EXCLUDED.max_iterations,
			max_parallel = EXCLUDED.max_parallel,
			step_timeout_ns = EXCLUDED.step_timeout_ns,
			retry_failed_steps = EXCLUDED.retry_failed_steps,
			continue_on_failure = EXCLUDED.continue_on_failure,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		pattern.ID,
		pattern.Name,
		pattern.Description,
		pattern.WorkflowType,
		agentIDsJSON,
		taskIDsJSON,
		pattern.UserObjective,
		pattern.ProjectDirectory,
		pattern.Status,
		pattern.MaxIterations,
		pattern.MaxParallel,
		int64(pattern.StepTimeout),
		pattern.RetryFailedSteps,
		pattern.ContinueOnFailure,
		pattern.CreatedAt,
		pattern.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	return nil
}

func (r *PatternRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_patterns WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewPatternError("Delete", id, persistence.ErrPatternNotFound)
	}

	return nil
}

func scanPattern(row interface{ Scan(...any) error }) (*models.WorkflowPattern, error) {
	var (
		pattern       models.WorkflowPattern
		agentIDsJSON  []byte
		taskIDsJSON   []byte
		stepTimeoutNS int64
	)

	err := row.Scan(
		&pattern.ID,
		&pattern.Name,
		&pattern.Description,
		&pattern.WorkflowType,
		&agentIDsJSON,
		&taskIDsJSON,
		&pattern.UserObjective,
		&pattern.ProjectDirectory,
		&pattern.Status,
		&pattern.MaxIterations,
		&pattern.MaxParallel,
		&stepTimeoutNS,
		&pattern.RetryFailedSteps,
		&pattern.ContinueOnFailure,
		&pattern.CreatedAt,
		&pattern.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(agentIDsJSON, &pattern.AgentIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent ids: %w", err)
	}

	if err := json.Unmarshal(taskIDsJSON, &pattern.TaskIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task ids: %w", err)
	}

	pattern.StepTimeout = time.Duration(stepTimeoutNS)

	return &pattern, nil
}
