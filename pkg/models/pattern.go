package models

import "time"

// PatternStatus represents the lifecycle state of a workflow pattern.
type PatternStatus string

const (
	PatternStatusDraft    PatternStatus = "draft"    // Editable, executable for trial runs
	PatternStatusActive   PatternStatus = "active"   // Current, executable
	PatternStatusArchived PatternStatus = "archived" // Historical, not executable
)

// Default execution knobs applied when a pattern leaves them unset.
const (
	DefaultMaxIterations = 5
	DefaultMaxParallel   = 4
	DefaultStepTimeout   = 600 * time.Second
)

// PatternMetadata carries derived facts about a pattern. The integrity pair
// is recomputed against the agent/task registries on every read, never cached.
type PatternMetadata struct {
	AgentCount  int  `json:"agent_count"`
	TaskCount   int  `json:"task_count"`
	AgentsValid bool `json:"agents_valid"`
	TasksValid  bool `json:"tasks_valid"`
}

// WorkflowPattern declares which agents and tasks participate in a workflow
// and how they are sequenced.
type WorkflowPattern struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"                        validate:"required,min=3"`
	Description       string          `json:"description"`
	WorkflowType      WorkflowType    `json:"workflow_type"               validate:"required"`
	AgentIDs          []string        `json:"agent_ids"                   validate:"required,min=1,unique"`
	TaskIDs           []string        `json:"task_ids"                    validate:"required,min=1,unique"`
	UserObjective     string          `json:"user_objective,omitempty"`
	ProjectDirectory  string          `json:"project_directory,omitempty"`
	Status            PatternStatus   `json:"status"`
	MaxIterations     int             `json:"max_iterations,omitempty"`
	MaxParallel       int             `json:"max_parallel,omitempty"`
	StepTimeout       time.Duration   `json:"step_timeout,omitempty"`
	RetryFailedSteps  bool            `json:"retry_failed_steps,omitempty"`
	ContinueOnFailure bool            `json:"continue_on_failure,omitempty"`
	Metadata          PatternMetadata `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// EffectiveMaxIterations returns the orchestrator iteration bound.
func (p *WorkflowPattern) EffectiveMaxIterations() int {
	if p.MaxIterations > 0 {
		return p.MaxIterations
	}

	return DefaultMaxIterations
}

// EffectiveMaxParallel returns the parallel fan-out bound.
func (p *WorkflowPattern) EffectiveMaxParallel() int {
	if p.MaxParallel > 0 {
		return p.MaxParallel
	}

	return DefaultMaxParallel
}

// EffectiveStepTimeout returns the per-step hard timeout.
func (p *WorkflowPattern) EffectiveStepTimeout() time.Duration {
	if p.StepTimeout > 0 {
		return p.StepTimeout
	}

	return DefaultStepTimeout
}
