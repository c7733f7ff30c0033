package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	root  string
	locks *keyedLocks
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root, locks: newKeyedLocks()}
}

// GetByID retrieves an execution by its ID from the file system.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	filePath := filepath.Clean(path.Join(er.root, "executions", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(body, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// List returns all executions, newest first.
func (er *ExecutionRepository) List(ctx context.Context) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(path.Join(er.root, "executions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5]

		execution, err := er.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if execution != nil {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// ListByPattern returns all executions referencing the given pattern, newest first.
func (er *ExecutionRepository) ListByPattern(ctx context.Context, patternID string) ([]*models.WorkflowExecution, error) {
	all, err := er.List(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.WorkflowExecution, 0)

	for _, execution := range all {
		if execution.PatternID == patternID {
			matching = append(matching, execution)
		}
	}

	return matching, nil
}

// Save writes an execution to the file system. Writes to the same execution
// id are serialized.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	lock := er.locks.forKey(execution.ID)
	lock.Lock()
	defer lock.Unlock()

	dir := path.Join(er.root, "executions")

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	return os.WriteFile(path.Join(dir, execution.ID+".json"), data, 0600)
}

// Delete removes an execution by its ID.
func (er *ExecutionRepository) Delete(_ context.Context, id string) error {
	lock := er.locks.forKey(id)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(path.Join(er.root, "executions", id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
		}

		return fmt.Errorf("failed to delete execution %s: %w", id, err)
	}

	return nil
}
