// Package engine drives workflow executions through their steps. The engine
// is the only component that mutates execution records while they are live.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atrox/maestro/pkg/eventbus"
	"github.com/atrox/maestro/pkg/events"
	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// StepRequest is the engine's call-out to the external agent runner for one step.
type StepRequest struct {
	AgentID          string         `json:"agent_id"`
	TaskID           string         `json:"task_id"`
	ProjectDirectory string         `json:"project_directory,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
}

// AgentRunner performs one task with one agent. The call is opaque to the
// engine, may take minutes, and is at-most-once per step unless the pattern
// opts into retries.
type AgentRunner func(ctx context.Context, req StepRequest) (map[string]any, error)

var (
	// ErrExecutionAborted is the internal signal that an abort was observed.
	ErrExecutionAborted = errors.New("execution aborted")

	// ErrIterationLimit indicates an orchestrator execution exceeded its
	// configured maximum number of passes.
	ErrIterationLimit = errors.New("iteration limit exceeded")

	// ErrPatternNotExecutable indicates the pattern cannot be executed.
	ErrPatternNotExecutable = errors.New("pattern is not executable")

	// ErrStateStore indicates the execution record could not be persisted
	// mid-run. Strategies treat this as an engine fault, not a step failure.
	ErrStateStore = errors.New("execution state store failure")
)

// abortWait bounds how long Abort blocks waiting for the running loop to
// observe the signal. An in-flight agent call can outlive this.
const abortWait = 10 * time.Second

// Engine executes workflow patterns.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	runner      AgentRunner
	tracer      trace.Tracer

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

// NewEngine creates an execution engine. The tracer may be nil; a no-op
// tracer is substituted.
func NewEngine(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	runner AgentRunner,
	tracer trace.Tracer,
) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("maestro-engine")
	}

	return &Engine{
		logger:      logger,
		persistence: p,
		registry:    reg,
		eventBus:    eventBus,
		runner:      runner,
		tracer:      tracer,
		running:     make(map[string]*run),
	}
}

// Execute creates a pending execution for the pattern and starts driving it
// asynchronously. The returned record is already persisted; callers observe
// progress by polling the execution store.
func (e *Engine) Execute(ctx context.Context, pattern *models.WorkflowPattern, execContext map[string]any) (*models.WorkflowExecution, error) {
	if len(pattern.AgentIDs) == 0 || len(pattern.TaskIDs) == 0 {
		return nil, ErrPatternNotExecutable
	}

	if pattern.Status == models.PatternStatusArchived {
		return nil, fmt.Errorf("pattern %s is archived: %w", pattern.ID, ErrPatternNotExecutable)
	}

	now := time.Now().UTC()
	execution := &models.WorkflowExecution{
		ID:             uuid.New().String(),
		PatternID:      pattern.ID,
		Status:         models.ExecutionStatusPending,
		CurrentStep:    0,
		TotalSteps:     len(pattern.TaskIDs),
		ActiveAgents:   []string{},
		CompletedTasks: []string{},
		FailedTasks:    []string{},
		StepOutputs:    make(map[string]any),
		Context:        execContext,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	r := newRun(e, pattern, execution)

	// The drive goroutine owns the record from here on; callers get a
	// detached copy so responses never marshal a record mid-mutation.
	record := r.snapshot()

	e.mu.Lock()
	e.running[execution.ID] = r
	e.mu.Unlock()

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.running, execution.ID)
			e.mu.Unlock()
		}()

		e.drive(r)
	}()

	return record, nil
}

// drive runs one execution to a terminal state. It never returns an error;
// faults are recorded on the execution itself.
func (e *Engine) drive(r *run) {
	ctx := context.Background()
	logger := e.logger.With("execution_id", r.execution.ID, "pattern_id", r.pattern.ID, "workflow_type", r.pattern.WorkflowType)

	logger.Info("Starting execution")

	r.mu.Lock()
	r.execution.Status = models.ExecutionStatusRunning
	r.mu.Unlock()

	if err := r.persist(ctx); err != nil {
		e.fault(ctx, logger, r, err)

		return
	}

	e.publish(ctx, r, events.ExecutionStarted{
		BaseEvent:    r.baseEvent(events.ExecutionStartedEvent),
		WorkflowType: r.pattern.WorkflowType,
		TotalSteps:   r.execution.TotalSteps,
	})

	strategy := strategyFor(r.pattern.WorkflowType)
	err := strategy.run(ctx, r)

	duration := time.Since(r.execution.StartedAt)

	switch {
	case err == nil:
		r.finish(models.ExecutionStatusCompleted, "")
		e.publish(ctx, r, events.ExecutionCompleted{
			BaseEvent: r.baseEvent(events.ExecutionCompletedEvent),
			Duration:  duration,
		})
		logger.Info("Execution completed", "duration", duration)

	case errors.Is(err, ErrExecutionAborted):
		r.finish(models.ExecutionStatusAborted, "")
		e.publish(ctx, r, events.ExecutionAborted{
			BaseEvent: r.baseEvent(events.ExecutionAbortedEvent),
			Duration:  duration,
		})
		logger.Info("Execution aborted", "duration", duration)

	default:
		r.finish(models.ExecutionStatusFailed, err.Error())
		e.publish(ctx, r, events.ExecutionFailed{
			BaseEvent: r.baseEvent(events.ExecutionFailedEvent),
			Error:     err.Error(),
			Duration:  duration,
		})
		logger.Error("Execution failed", "error", err, "duration", duration)
	}

	if err := r.persist(ctx); err != nil {
		logger.Error("Failed to persist terminal execution state", "error", err)
	}

	close(r.done)
}

// fault forces an execution to failed after an internal error such as a
// store write failure. Never silently ignored.
func (e *Engine) fault(ctx context.Context, logger *slog.Logger, r *run, err error) {
	logger.Error("Engine fault", "error", err)

	r.finish(models.ExecutionStatusFailed, fmt.Sprintf("engine fault: %v", err))

	if persistErr := r.persist(ctx); persistErr != nil {
		logger.Error("Failed to persist faulted execution", "error", persistErr)
	}

	close(r.done)
}

// Abort requests a cooperative stop of a running execution. It is a no-op on
// terminal executions. The call returns once the run loop has observed the
// signal and reached a terminal state, or after a bounded wait when the
// in-flight agent call has not returned yet.
func (e *Engine) Abort(ctx context.Context, executionID string) error {
	e.mu.Lock()
	r, tracked := e.running[executionID]
	e.mu.Unlock()

	if !tracked {
		return e.abortDetached(ctx, executionID)
	}

	r.requestAbort()

	select {
	case <-r.done:
	case <-time.After(abortWait):
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// abortDetached handles executions no run loop owns, such as records left
// behind by a previous process.
func (e *Engine) abortDetached(ctx context.Context, executionID string) error {
	repo := e.persistence.ExecutionRepository()

	execution, err := repo.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution == nil {
		return persistence.NewExecutionError("Abort", executionID, persistence.ErrExecutionNotFound)
	}

	if execution.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusAborted
	execution.ActiveAgents = []string{}
	execution.UpdatedAt = now
	execution.CompletedAt = &now

	return repo.Save(ctx, execution)
}

// Shutdown waits for in-flight executions to reach a terminal state or the
// context to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) publish(ctx context.Context, r *run, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, r.execution.ID, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
