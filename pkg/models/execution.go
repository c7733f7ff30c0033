package models

import (
	"maps"
	"slices"
	"time"
)

// ExecutionStatus is the state machine tag for a workflow execution.
// Transitions: pending -> running -> {completed | failed | aborted}.
// No transition leaves a terminal state.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusAborted   ExecutionStatus = "aborted"
)

// Terminal reports whether s is a terminal status.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusAborted:
		return true
	default:
		return false
	}
}

// WorkflowExecution is one live or completed run of a pattern. The execution
// engine exclusively owns the mutable fields while the status is pending or
// running; terminal records are read-only.
type WorkflowExecution struct {
	ID                 string         `json:"id"`
	PatternID          string         `json:"pattern_id"`
	Status             ExecutionStatus `json:"status"`
	CurrentStep        int            `json:"current_step"`
	TotalSteps         int            `json:"total_steps"`
	ProgressPercentage float64        `json:"progress_percentage"`
	ActiveAgents       []string       `json:"active_agents"`
	CompletedTasks     []string       `json:"completed_tasks"`
	FailedTasks        []string       `json:"failed_tasks"`
	StepOutputs        map[string]any `json:"step_outputs"`
	IterationCount     int            `json:"iteration_count"`
	Context            map[string]any `json:"context,omitempty"`
	Error              string         `json:"error,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the execution. The engine hands clones to
// stores and API callers so the live record can keep changing underneath.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	clone := *e
	clone.ActiveAgents = slices.Clone(e.ActiveAgents)
	clone.CompletedTasks = slices.Clone(e.CompletedTasks)
	clone.FailedTasks = slices.Clone(e.FailedTasks)
	clone.StepOutputs = maps.Clone(e.StepOutputs)
	clone.Context = maps.Clone(e.Context)

	if e.CompletedAt != nil {
		completedAt := *e.CompletedAt
		clone.CompletedAt = &completedAt
	}

	return &clone
}

// Progress returns current_step/total_steps as a percentage, clamped to [0,100].
func (e *WorkflowExecution) Progress() float64 {
	if e.TotalSteps <= 0 {
		return 0
	}

	pct := float64(e.CurrentStep) / float64(e.TotalSteps) * 100
	if pct > 100 {
		return 100
	}

	if pct < 0 {
		return 0
	}

	return pct
}
