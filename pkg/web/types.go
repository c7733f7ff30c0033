package web

import "github.com/atrox/maestro/pkg/models"

// AnalyzeRequest proposes a set of agents and tasks for analysis.
type AnalyzeRequest struct {
	AgentIDs      []string `json:"agent_ids"`
	TaskIDs       []string `json:"task_ids"`
	UserObjective string   `json:"user_objective"`
}

// CreatePatternRequest is the payload for creating a workflow pattern.
type CreatePatternRequest struct {
	Name              string              `json:"name"               validate:"required,min=3"`
	Description       string              `json:"description"`
	AgentIDs          []string            `json:"agent_ids"          validate:"required,min=1,unique"`
	TaskIDs           []string            `json:"task_ids"           validate:"required,min=1,unique"`
	UserObjective     string              `json:"user_objective"`
	WorkflowType      models.WorkflowType `json:"workflow_type"`
	ProjectDirectory  string              `json:"project_directory"`
	MaxIterations     int                 `json:"max_iterations"     validate:"min=0"`
	MaxParallel       int                 `json:"max_parallel"       validate:"min=0"`
	StepTimeoutSecs   int                 `json:"step_timeout_seconds" validate:"min=0"`
	RetryFailedSteps  bool                `json:"retry_failed_steps"`
	ContinueOnFailure bool                `json:"continue_on_failure"`
}

// UpdatePatternRequest carries the full-replace payload for updating a
// pattern. Same shape as create plus the lifecycle status.
type UpdatePatternRequest struct {
	CreatePatternRequest

	Status models.PatternStatus `json:"status"`
}

// ExecuteRequest is the payload for starting an execution. The context map
// is passed through to every step, opaque to the engine.
type ExecuteRequest struct {
	Context map[string]any `json:"context"`
}
