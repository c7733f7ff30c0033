package engine

import (
	"context"
	"fmt"

	"github.com/atrox/maestro/pkg/models"
)

// sequentialStrategy dispatches tasks one at a time in declared order. Each
// completed step hands its output to the next agent via a handoff message.
type sequentialStrategy struct{}

func (s *sequentialStrategy) run(ctx context.Context, r *run) error {
	for i, taskID := range r.pattern.TaskIDs {
		if r.abortRequested() {
			return ErrExecutionAborted
		}

		agentID := r.agentForStep(i)

		output, err := r.dispatchStep(ctx, agentID, taskID, i+1)
		if err != nil {
			if isAbort(err) || !r.pattern.ContinueOnFailure {
				return fmt.Errorf("step %d (task %s) failed: %w", i+1, taskID, err)
			}

			continue
		}

		if next := i + 1; next < len(r.pattern.TaskIDs) {
			nextAgent := r.agentForStep(next)

			r.logCommunication(ctx, agentID, nextAgent, models.MessageTypeHandoff,
				fmt.Sprintf("handing off output of task %s as input for task %s", taskID, r.pattern.TaskIDs[next]),
				map[string]any{
					"task_id":   taskID,
					"next_task": r.pattern.TaskIDs[next],
					"output":    output,
				},
			)
		}
	}

	if failed := len(r.execution.FailedTasks); failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}

	return nil
}
