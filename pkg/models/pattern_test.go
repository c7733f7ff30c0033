package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowPattern_EffectiveDefaults(t *testing.T) {
	t.Parallel()

	pattern := &WorkflowPattern{}

	assert.Equal(t, DefaultMaxIterations, pattern.EffectiveMaxIterations())
	assert.Equal(t, DefaultMaxParallel, pattern.EffectiveMaxParallel())
	assert.Equal(t, DefaultStepTimeout, pattern.EffectiveStepTimeout())
}

func TestWorkflowPattern_EffectiveOverrides(t *testing.T) {
	t.Parallel()

	pattern := &WorkflowPattern{
		MaxIterations: 9,
		MaxParallel:   2,
		StepTimeout:   30 * time.Second,
	}

	assert.Equal(t, 9, pattern.EffectiveMaxIterations())
	assert.Equal(t, 2, pattern.EffectiveMaxParallel())
	assert.Equal(t, 30*time.Second, pattern.EffectiveStepTimeout())
}

func TestValidWorkflowType(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidWorkflowType(WorkflowTypeSequential))
	assert.True(t, ValidWorkflowType(WorkflowTypeOrchestrator))
	assert.True(t, ValidWorkflowType(WorkflowTypeParallel))
	assert.False(t, ValidWorkflowType("pipeline"))
	assert.False(t, ValidWorkflowType(""))
}

func TestWorkflowTypes_Catalog(t *testing.T) {
	t.Parallel()

	types := WorkflowTypes()
	assert.Len(t, types, 3)

	for _, info := range types {
		assert.True(t, ValidWorkflowType(info.Name))
		assert.NotEmpty(t, info.Description)
		assert.NotEmpty(t, info.UseCases)
	}
}
