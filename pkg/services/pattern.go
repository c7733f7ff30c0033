package services

import (
	"context"
	"fmt"
	"time"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/google/uuid"
)

var (
	// ErrPatternNotFound is returned when a pattern is not found.
	ErrPatternNotFound = persistence.ErrPatternNotFound
)

// ExecutionAborter is the engine capability the pattern service needs for
// force-deletes. Abort is idempotent on terminal executions.
type ExecutionAborter interface {
	Abort(ctx context.Context, executionID string) error
}

// Pattern is the service over the pattern store.
type Pattern struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	analyzer    *Analyzer
	aborter     ExecutionAborter
}

// NewPattern creates a new pattern service.
func NewPattern(p persistence.Persistence, reg *registry.Registry, aborter ExecutionAborter) *Pattern {
	return &Pattern{
		persistence: p,
		registry:    reg,
		analyzer:    NewAnalyzer(reg),
		aborter:     aborter,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Pattern) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create adds a new pattern to the store. Empty or duplicated id lists are
// rejected before anything is persisted.
func (s *Pattern) Create(ctx context.Context, pattern *models.WorkflowPattern) (*models.WorkflowPattern, error) {
	if pattern == nil {
		return nil, ErrPatternNil
	}

	if err := s.validateReferences(pattern); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pattern.ID = uuid.New().String()
	pattern.CreatedAt = now
	pattern.UpdatedAt = now

	if pattern.Status == "" {
		pattern.Status = models.PatternStatusDraft
	}

	if pattern.WorkflowType == "" {
		result := s.analyzer.Analyze(pattern.AgentIDs, pattern.TaskIDs, pattern.UserObjective)
		pattern.WorkflowType = result.RecommendedWorkflow
	}

	if !models.ValidWorkflowType(pattern.WorkflowType) {
		return nil, NewValidationError(
			"Create",
			"INVALID_WORKFLOW_TYPE",
			fmt.Sprintf("unknown workflow type %q", pattern.WorkflowType),
			ErrInvalidWorkflowType,
		)
	}

	s.decorate(pattern)

	err := s.persistence.PatternRepository().Save(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern: %w", err)
	}

	return pattern, nil
}

// FetchByID retrieves a pattern by its ID. The integrity metadata is
// recomputed against the registry on every read.
func (s *Pattern) FetchByID(ctx context.Context, id string) (*models.WorkflowPattern, error) {
	pattern, err := s.persistence.PatternRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if pattern == nil {
		return nil, ErrPatternNotFound
	}

	s.decorate(pattern)

	return pattern, nil
}

// List retrieves all patterns, newest first, with fresh integrity metadata.
func (s *Pattern) List(ctx context.Context) ([]*models.WorkflowPattern, error) {
	patterns, err := s.persistence.PatternRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	for _, pattern := range patterns {
		s.decorate(pattern)
	}

	return patterns, nil
}

// Update replaces a pattern's user-supplied fields. Changing the agent or
// task lists while a non-terminal execution references the pattern is a
// conflict.
func (s *Pattern) Update(ctx context.Context, id string, pattern *models.WorkflowPattern) (*models.WorkflowPattern, error) {
	if pattern == nil {
		return nil, ErrPatternNil
	}

	existing, err := s.persistence.PatternRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrPatternNotFound
	}

	if err := s.validateReferences(pattern); err != nil {
		return nil, err
	}

	if pattern.WorkflowType == "" {
		result := s.analyzer.Analyze(pattern.AgentIDs, pattern.TaskIDs, pattern.UserObjective)
		pattern.WorkflowType = result.RecommendedWorkflow
	}

	if !models.ValidWorkflowType(pattern.WorkflowType) {
		return nil, NewValidationError(
			"Update",
			"INVALID_WORKFLOW_TYPE",
			fmt.Sprintf("unknown workflow type %q", pattern.WorkflowType),
			ErrInvalidWorkflowType,
		)
	}

	if !equalIDs(existing.AgentIDs, pattern.AgentIDs) || !equalIDs(existing.TaskIDs, pattern.TaskIDs) {
		active, err := s.nonTerminalExecutions(ctx, id)
		if err != nil {
			return nil, err
		}

		if len(active) > 0 {
			return nil, NewConflictError(
				"Update",
				"STRUCTURAL_CHANGE_MID_FLIGHT",
				fmt.Sprintf("%d execution(s) in flight reference this pattern", len(active)),
				ErrStructuralChangeMidFlight,
			)
		}
	}

	pattern.ID = id
	pattern.CreatedAt = existing.CreatedAt
	pattern.UpdatedAt = time.Now().UTC()

	if pattern.Status == "" {
		pattern.Status = existing.Status
	}

	s.decorate(pattern)

	err = s.persistence.PatternRepository().Save(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to update pattern: %w", err)
	}

	return pattern, nil
}

// Delete removes a pattern. With force=false the delete fails with a
// conflict while any referencing execution is non-terminal. With force=true
// every referencing execution is aborted first; this is the only path by
// which an execution is aborted as a side effect of another operation.
func (s *Pattern) Delete(ctx context.Context, id string, force bool) error {
	existing, err := s.persistence.PatternRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrPatternNotFound
	}

	active, err := s.nonTerminalExecutions(ctx, id)
	if err != nil {
		return err
	}

	if len(active) > 0 {
		if !force {
			return NewConflictError(
				"Delete",
				"PATTERN_IN_USE",
				fmt.Sprintf("%d execution(s) in flight reference this pattern; retry with force=true to abort them", len(active)),
				ErrPatternHasActiveExecutions,
			)
		}

		for _, execution := range active {
			if err := s.aborter.Abort(ctx, execution.ID); err != nil {
				return fmt.Errorf("failed to abort execution %s: %w", execution.ID, err)
			}
		}
	}

	err = s.persistence.PatternRepository().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}

	return nil
}

func (s *Pattern) nonTerminalExecutions(ctx context.Context, patternID string) ([]*models.WorkflowExecution, error) {
	executions, err := s.persistence.ExecutionRepository().ListByPattern(ctx, patternID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions for pattern %s: %w", patternID, err)
	}

	active := make([]*models.WorkflowExecution, 0)

	for _, execution := range executions {
		if !execution.Status.Terminal() {
			active = append(active, execution)
		}
	}

	return active, nil
}

// decorate recomputes the derived metadata, integrity pair included.
func (s *Pattern) decorate(pattern *models.WorkflowPattern) {
	pattern.Metadata = models.PatternMetadata{
		AgentCount:  len(pattern.AgentIDs),
		TaskCount:   len(pattern.TaskIDs),
		AgentsValid: s.registry.ResolveAgents(pattern.AgentIDs),
		TasksValid:  s.registry.ResolveTasks(pattern.TaskIDs),
	}
}

func (s *Pattern) validateReferences(pattern *models.WorkflowPattern) error {
	if len(pattern.AgentIDs) == 0 {
		return ErrEmptyAgentIDs
	}

	if len(pattern.TaskIDs) == 0 {
		return ErrEmptyTaskIDs
	}

	if hasDuplicates(pattern.AgentIDs) {
		return ErrDuplicateAgentIDs
	}

	if hasDuplicates(pattern.TaskIDs) {
		return ErrDuplicateTaskIDs
	}

	return nil
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			return true
		}

		seen[id] = true
	}

	return false
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
