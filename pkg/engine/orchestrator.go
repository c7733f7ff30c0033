package engine

import (
	"context"
	"errors"
	"fmt"
)

// orchestratorStrategy repeatedly passes over the task set, dispatching
// tasks whose declared dependencies are satisfied, one step in flight at a
// time. Failed tasks stay eligible and are retried on the next pass; the
// pass count is bounded by the pattern's max_iterations.
type orchestratorStrategy struct{}

func (s *orchestratorStrategy) run(ctx context.Context, r *run) error {
	maxIterations := r.pattern.EffectiveMaxIterations()

	for iteration := 1; ; iteration++ {
		if err := r.setIteration(ctx, iteration); err != nil {
			return fmt.Errorf("failed to record iteration: %w", err)
		}

		dispatched, err := s.pass(ctx, r)
		if err != nil {
			return err
		}

		completed := r.completedSet()
		if len(completed) == len(r.pattern.TaskIDs) {
			return nil
		}

		if iteration >= maxIterations {
			return fmt.Errorf("%w: %d of %d tasks completed after %d passes",
				ErrIterationLimit, len(completed), len(r.pattern.TaskIDs), iteration)
		}

		// A pass that could not dispatch anything will not make progress on
		// the next one either; blocked dependencies burn iterations until
		// the bound trips.
		_ = dispatched
	}
}

// pass walks the task list once in declared order, dispatching every
// unfinished task whose in-set dependencies are complete.
func (s *orchestratorStrategy) pass(ctx context.Context, r *run) (int, error) {
	inSet := make(map[string]bool, len(r.pattern.TaskIDs))
	for _, id := range r.pattern.TaskIDs {
		inSet[id] = true
	}

	dispatched := 0

	for i, taskID := range r.pattern.TaskIDs {
		if r.abortRequested() {
			return dispatched, ErrExecutionAborted
		}

		completed := r.completedSet()
		if completed[taskID] {
			continue
		}

		if !s.depsSatisfied(r, taskID, inSet, completed) {
			continue
		}

		dispatched++

		// Step failures do not fail the execution here; the task remains
		// unfinished and the iteration bound decides its fate. Store faults
		// are not step failures and propagate immediately.
		_, err := r.dispatchStep(ctx, r.agentForStep(i), taskID, len(completed)+1)
		if err != nil {
			if isAbort(err) {
				return dispatched, ErrExecutionAborted
			}

			if errors.Is(err, ErrStateStore) {
				return dispatched, err
			}

			r.engine.logger.Warn("Task failed, will retry next pass",
				"execution_id", r.execution.ID, "task_id", taskID, "error", err)
		}
	}

	return dispatched, nil
}

func (s *orchestratorStrategy) depsSatisfied(r *run, taskID string, inSet, completed map[string]bool) bool {
	task := r.engine.registry.Task(taskID)
	if task == nil {
		return true
	}

	for _, dep := range task.DependsOn {
		if inSet[dep] && !completed[dep] {
			return false
		}
	}

	return true
}
