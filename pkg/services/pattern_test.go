package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/persistence/file"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAborter records abort calls and marks the execution aborted, the way
// the engine's detached abort path does.
type stubAborter struct {
	persistence persistence.Persistence
	calls       []string
}

func (a *stubAborter) Abort(ctx context.Context, executionID string) error {
	a.calls = append(a.calls, executionID)

	execution, err := a.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil || execution == nil {
		return err
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusAborted
	execution.CompletedAt = &now

	return a.persistence.ExecutionRepository().Save(ctx, execution)
}

func newPatternService(t *testing.T) (*Pattern, persistence.Persistence, *stubAborter) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Coder"})
	reg.RegisterAgent(&models.AgentDefinition{ID: "reviewer", Name: "Reviewer"})
	reg.RegisterTask(&models.TaskDefinition{ID: "implement", Name: "Implement"})
	reg.RegisterTask(&models.TaskDefinition{ID: "review", Name: "Review", DependsOn: []string{"implement"}})

	aborter := &stubAborter{persistence: p}

	return NewPattern(p, reg, aborter), p, aborter
}

func validPattern() *models.WorkflowPattern {
	return &models.WorkflowPattern{
		Name:         "Review pipeline",
		WorkflowType: models.WorkflowTypeSequential,
		AgentIDs:     []string{"coder", "reviewer"},
		TaskIDs:      []string{"implement", "review"},
	}
}

func TestPattern_Create(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, models.PatternStatusDraft, created.Status)
	assert.Equal(t, 2, created.Metadata.AgentCount)
	assert.Equal(t, 2, created.Metadata.TaskCount)
	assert.True(t, created.Metadata.AgentsValid)
	assert.True(t, created.Metadata.TasksValid)
}

func TestPattern_CreateRoundTrip(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Name, fetched.Name)
	assert.True(t, fetched.CreatedAt.Equal(fetched.UpdatedAt))
}

func TestPattern_CreateDefaultsWorkflowTypeFromAnalyzer(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)

	pattern := validPattern()
	pattern.WorkflowType = ""

	created, err := service.Create(context.Background(), pattern)
	require.NoError(t, err)

	// review depends on implement and two agents are supplied.
	assert.Equal(t, models.WorkflowTypeOrchestrator, created.WorkflowType)
}

func TestPattern_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *models.WorkflowPattern)
	}{
		{"empty agent ids", func(p *models.WorkflowPattern) { p.AgentIDs = nil }},
		{"empty task ids", func(p *models.WorkflowPattern) { p.TaskIDs = []string{} }},
		{"duplicate agent ids", func(p *models.WorkflowPattern) { p.AgentIDs = []string{"coder", "coder"} }},
		{"duplicate task ids", func(p *models.WorkflowPattern) { p.TaskIDs = []string{"implement", "implement"} }},
		{"unknown workflow type", func(p *models.WorkflowPattern) { p.WorkflowType = "pipeline" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, _, _ := newPatternService(t)

			pattern := validPattern()
			tt.mutate(pattern)

			_, err := service.Create(context.Background(), pattern)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			// Nothing was persisted.
			patterns, listErr := service.List(context.Background())
			require.NoError(t, listErr)
			assert.Empty(t, patterns)
		})
	}
}

func TestPattern_MetadataRecomputedOnRead(t *testing.T) {
	t.Parallel()

	service, p, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)
	require.True(t, created.Metadata.AgentsValid)

	// Corrupt the stored record to reference an unregistered agent. The next
	// read must reflect the broken reference without touching storage.
	stored, err := p.PatternRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	stored.AgentIDs = []string{"ghost"}
	require.NoError(t, p.PatternRepository().Save(ctx, stored))

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, fetched.Metadata.AgentsValid)
	assert.True(t, fetched.Metadata.TasksValid)
}

func TestPattern_Update(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	replacement := validPattern()
	replacement.Name = "Renamed pipeline"

	updated, err := service.Update(ctx, created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed pipeline", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestPattern_UpdateDefaultsWorkflowType(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	replacement := validPattern()
	replacement.WorkflowType = ""

	// Same full-replace contract as create: an omitted type falls back to
	// the analyzer recommendation (review depends on implement).
	updated, err := service.Update(ctx, created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowTypeOrchestrator, updated.WorkflowType)
}

func TestPattern_UpdateNotFound(t *testing.T) {
	t.Parallel()

	service, _, _ := newPatternService(t)

	_, err := service.Update(context.Background(), "missing", validPattern())
	require.Error(t, err)
	assert.True(t, persistence.IsPatternNotFound(err))
}

func TestPattern_UpdateStructuralConflict(t *testing.T) {
	t.Parallel()

	service, p, _ := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	running := &models.WorkflowExecution{
		ID:        "exec-1",
		PatternID: created.ID,
		Status:    models.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, running))

	// Changing the task list mid-flight is a conflict.
	structural := validPattern()
	structural.TaskIDs = []string{"implement"}

	_, err = service.Update(ctx, created.ID, structural)
	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	// A rename with the same id lists goes through.
	rename := validPattern()
	rename.Name = "Still running"

	_, err = service.Update(ctx, created.ID, rename)
	require.NoError(t, err)
}

func TestPattern_DeleteConflictWithoutForce(t *testing.T) {
	t.Parallel()

	service, p, aborter := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	running := &models.WorkflowExecution{
		ID:        "exec-1",
		PatternID: created.ID,
		Status:    models.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, running))

	err = service.Delete(ctx, created.ID, false)
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
	assert.Empty(t, aborter.calls)

	// The pattern survives a refused delete.
	_, err = service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
}

func TestPattern_ForceDeleteAbortsExecutions(t *testing.T) {
	t.Parallel()

	service, p, aborter := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	for _, id := range []string{"exec-1", "exec-2"} {
		execution := &models.WorkflowExecution{
			ID:        id,
			PatternID: created.ID,
			Status:    models.ExecutionStatusRunning,
			StartedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, p.ExecutionRepository().Save(ctx, execution))
	}

	require.NoError(t, service.Delete(ctx, created.ID, true))
	assert.ElementsMatch(t, []string{"exec-1", "exec-2"}, aborter.calls)

	_, err = service.FetchByID(ctx, created.ID)
	assert.True(t, persistence.IsPatternNotFound(err))
}

func TestPattern_DeleteIgnoresTerminalExecutions(t *testing.T) {
	t.Parallel()

	service, p, aborter := newPatternService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validPattern())
	require.NoError(t, err)

	done := &models.WorkflowExecution{
		ID:        "exec-done",
		PatternID: created.ID,
		Status:    models.ExecutionStatusCompleted,
		StartedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, done))

	require.NoError(t, service.Delete(ctx, created.ID, false))
	assert.Empty(t, aborter.calls)
}
