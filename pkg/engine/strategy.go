package engine

import (
	"context"

	"github.com/atrox/maestro/pkg/models"
)

// stepStrategy sequences the steps of one execution. One implementation per
// workflow type, selected once at execution start; the shared bookkeeping in
// run never branches on the type.
type stepStrategy interface {
	run(ctx context.Context, r *run) error
}

func strategyFor(workflowType models.WorkflowType) stepStrategy {
	switch workflowType {
	case models.WorkflowTypeOrchestrator:
		return &orchestratorStrategy{}
	case models.WorkflowTypeParallel:
		return &parallelStrategy{}
	case models.WorkflowTypeSequential:
		return &sequentialStrategy{}
	default:
		return &sequentialStrategy{}
	}
}
