package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atrox/maestro/pkg/events"
	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// run holds the live state of one execution. The strategies drive it; all
// bookkeeping goes through its methods so the parallel strategy can mutate
// the record from several goroutines.
type run struct {
	engine    *Engine
	pattern   *models.WorkflowPattern
	execution *models.WorkflowExecution

	mu      sync.Mutex
	aborted atomic.Bool
	done    chan struct{}
}

func newRun(e *Engine, pattern *models.WorkflowPattern, execution *models.WorkflowExecution) *run {
	return &run{
		engine:    e,
		pattern:   pattern,
		execution: execution,
		done:      make(chan struct{}),
	}
}

func (r *run) requestAbort() {
	r.aborted.Store(true)
}

func (r *run) abortRequested() bool {
	return r.aborted.Load()
}

func (r *run) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		PatternID:   r.pattern.ID,
		ExecutionID: r.execution.ID,
	}
}

// persist writes the execution record with a fresh updated_at. The store
// receives a snapshot taken under the lock; marshaling the live record would
// race with sibling step goroutines in parallel mode.
func (r *run) persist(ctx context.Context) error {
	r.mu.Lock()
	r.execution.UpdatedAt = time.Now().UTC()
	r.execution.ProgressPercentage = r.execution.Progress()
	snapshot := r.execution.Clone()
	r.mu.Unlock()

	return r.engine.persistence.ExecutionRepository().Save(ctx, snapshot)
}

// snapshot returns a consistent copy of the execution record.
func (r *run) snapshot() *models.WorkflowExecution {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.execution.Clone()
}

// finish moves the execution to a terminal state. Active agents are cleared;
// progress is left wherever the last completed step put it.
func (r *run) finish(status models.ExecutionStatus, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.execution.Status = status
	r.execution.ActiveAgents = []string{}
	r.execution.Error = reason
	r.execution.CompletedAt = &now
}

// dispatchStep runs one task with one agent through the injected runner,
// honoring the per-step timeout and, when the pattern opts in, the agent's
// retry count. Bookkeeping for success and failure is done here; the caller
// decides what a failure means for the execution as a whole.
func (r *run) dispatchStep(ctx context.Context, agentID, taskID string, step int) (map[string]any, error) {
	spanCtx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "engine.step",
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.String(otelhelper.AgentIDKey, agentID),
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.Int(otelhelper.StepKey, step),
	)
	defer span.End()

	r.markDispatched(agentID)

	if err := r.persist(spanCtx); err != nil {
		return nil, fmt.Errorf("%w: dispatch state: %w", ErrStateStore, err)
	}

	r.logCommunication(spanCtx, "orchestrator", agentID, models.MessageTypeStatus,
		fmt.Sprintf("dispatching task %s", taskID),
		map[string]any{"task_id": taskID, "step": step},
	)

	r.engine.publish(spanCtx, r, events.StepDispatched{
		BaseEvent: r.baseEvent(events.StepDispatchedEvent),
		AgentID:   agentID,
		TaskID:    taskID,
		Step:      step,
	})

	started := time.Now().UTC()
	output, err := r.callRunner(spanCtx, agentID, taskID)
	duration := time.Since(started)

	r.unmarkDispatched(agentID)

	// An abort observed after the call returned discards the result; the
	// execution never records work finished past the abort point.
	if r.abortRequested() {
		return nil, ErrExecutionAborted
	}

	if err != nil {
		otelhelper.SetError(span, err)
		r.recordFailure(taskID)

		r.logCommunication(spanCtx, agentID, "orchestrator", models.MessageTypeError,
			fmt.Sprintf("task %s failed: %v", taskID, err),
			map[string]any{"task_id": taskID, "step": step},
		)

		r.engine.publish(spanCtx, r, events.StepFailed{
			BaseEvent: r.baseEvent(events.StepFailedEvent),
			AgentID:   agentID,
			TaskID:    taskID,
			Step:      step,
			Error:     err.Error(),
			Duration:  duration,
		})

		if persistErr := r.persist(spanCtx); persistErr != nil {
			return nil, fmt.Errorf("%w: step failure: %w", ErrStateStore, persistErr)
		}

		return nil, err
	}

	r.recordSuccess(taskID, output)

	r.logCommunication(spanCtx, agentID, "orchestrator", models.MessageTypeResult,
		fmt.Sprintf("task %s completed", taskID),
		map[string]any{"task_id": taskID, "step": step},
	)

	r.engine.publish(spanCtx, r, events.StepFinished{
		BaseEvent: r.baseEvent(events.StepFinishedEvent),
		AgentID:   agentID,
		TaskID:    taskID,
		Step:      step,
		Duration:  duration,
	})

	if persistErr := r.persist(spanCtx); persistErr != nil {
		return nil, fmt.Errorf("%w: step completion: %w", ErrStateStore, persistErr)
	}

	return output, nil
}

// callRunner issues the external call with the per-step timeout, re-issuing
// it only when the pattern explicitly opts into retries.
func (r *run) callRunner(ctx context.Context, agentID, taskID string) (map[string]any, error) {
	attempts := 1

	if r.pattern.RetryFailedSteps {
		if agent := r.engine.registry.Agent(agentID); agent != nil && agent.Settings.RetryCount > 0 {
			attempts += agent.Settings.RetryCount
		}
	}

	req := StepRequest{
		AgentID:          agentID,
		TaskID:           taskID,
		ProjectDirectory: r.pattern.ProjectDirectory,
		Context:          r.execution.Context,
	}

	var lastErr error

	for attempt := range attempts {
		stepCtx, cancel := context.WithTimeout(ctx, r.pattern.EffectiveStepTimeout())
		output, err := r.engine.runner(stepCtx, req)
		cancel()

		if err == nil {
			return output, nil
		}

		lastErr = err

		if r.abortRequested() {
			break
		}

		if attempt < attempts-1 {
			r.engine.logger.Warn("Retrying step",
				"execution_id", r.execution.ID, "task_id", taskID, "attempt", attempt+1, "error", err)
		}
	}

	return nil, lastErr
}

func (r *run) markDispatched(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.ActiveAgents = append(r.execution.ActiveAgents, agentID)
}

func (r *run) unmarkDispatched(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range r.execution.ActiveAgents {
		if id == agentID {
			r.execution.ActiveAgents = append(r.execution.ActiveAgents[:i], r.execution.ActiveAgents[i+1:]...)

			break
		}
	}
}

func (r *run) recordSuccess(taskID string, output map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.CompletedTasks = append(r.execution.CompletedTasks, taskID)
	r.execution.StepOutputs[taskID] = output
	r.execution.CurrentStep++
}

func (r *run) recordFailure(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.FailedTasks = append(r.execution.FailedTasks, taskID)
}

func (r *run) completedSet() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := make(map[string]bool, len(r.execution.CompletedTasks))
	for _, id := range r.execution.CompletedTasks {
		set[id] = true
	}

	return set
}

// setIteration records an orchestrator pass count.
func (r *run) setIteration(ctx context.Context, iteration int) error {
	r.mu.Lock()
	r.execution.IterationCount = iteration
	r.mu.Unlock()

	return r.persist(ctx)
}

// logCommunication appends an entry to the execution's message log and
// announces it on the event bus. Log failures are reported but do not stop
// the execution.
func (r *run) logCommunication(ctx context.Context, from, to string, messageType models.MessageType, message string, commContext map[string]any) {
	comm := &models.AgentCommunication{
		ID:          uuid.New().String(),
		ExecutionID: r.execution.ID,
		FromAgentID: from,
		ToAgentID:   to,
		Message:     message,
		MessageType: messageType,
		Context:     commContext,
		Timestamp:   time.Now().UTC(),
	}

	if err := r.engine.persistence.CommunicationRepository().Append(ctx, comm); err != nil {
		r.engine.logger.Error("Failed to append communication",
			"execution_id", r.execution.ID, "message_type", messageType, "error", err)

		return
	}

	r.engine.publish(ctx, r, events.CommunicationLogged{
		BaseEvent:   r.baseEvent(events.CommunicationLoggedEvent),
		FromAgentID: from,
		ToAgentID:   to,
		MessageType: messageType,
	})
}

// agentForStep pairs tasks with agents, cycling the agent list when a
// pattern declares fewer agents than tasks.
func (r *run) agentForStep(index int) string {
	return r.pattern.AgentIDs[index%len(r.pattern.AgentIDs)]
}
