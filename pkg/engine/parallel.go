package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// parallelStrategy fans tasks out in waves bounded by the pattern's
// max_parallel and joins on each wave before starting the next. The join
// never proceeds until every fanned-out step has resolved.
type parallelStrategy struct{}

func (s *parallelStrategy) run(ctx context.Context, r *run) error {
	maxParallel := r.pattern.EffectiveMaxParallel()
	taskIDs := r.pattern.TaskIDs

	for start := 0; start < len(taskIDs); start += maxParallel {
		if r.abortRequested() {
			return ErrExecutionAborted
		}

		end := min(start+maxParallel, len(taskIDs))
		wave := taskIDs[start:end]

		stepErrs := make([]error, len(wave))

		var wg sync.WaitGroup

		for i, taskID := range wave {
			wg.Add(1)

			go func(i int, taskID string, step int) {
				defer wg.Done()

				_, err := r.dispatchStep(ctx, r.agentForStep(start+i), taskID, step)
				stepErrs[i] = err
			}(i, taskID, start+i+1)
		}

		wg.Wait()

		for i, err := range stepErrs {
			if err == nil {
				continue
			}

			if isAbort(err) {
				return ErrExecutionAborted
			}

			if !r.pattern.ContinueOnFailure {
				return fmt.Errorf("task %s failed: %w", wave[i], err)
			}
		}
	}

	if failed := len(r.execution.FailedTasks); failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}

	return nil
}

func isAbort(err error) bool {
	return errors.Is(err, ErrExecutionAborted)
}
