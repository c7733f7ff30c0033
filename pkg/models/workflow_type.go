// Package models defines the core domain models for multi-agent workflow orchestration.
package models

// WorkflowType selects the step-sequencing strategy for a pattern.
type WorkflowType string

const (
	// WorkflowTypeSequential dispatches tasks one at a time in declared order.
	WorkflowTypeSequential WorkflowType = "sequential"

	// WorkflowTypeOrchestrator iterates over the task set, dispatching tasks
	// whose dependencies are satisfied, until all complete or the iteration
	// bound is hit.
	WorkflowTypeOrchestrator WorkflowType = "orchestrator"

	// WorkflowTypeParallel fans tasks out to a bounded set of concurrent
	// agents and joins on the whole wave.
	WorkflowTypeParallel WorkflowType = "parallel"
)

// WorkflowTypeInfo describes a workflow type for API consumers.
type WorkflowTypeInfo struct {
	Name        WorkflowType `json:"name"`
	Description string       `json:"description"`
	UseCases    []string     `json:"use_cases"`
}

// WorkflowTypes returns the closed set of supported workflow types.
func WorkflowTypes() []WorkflowTypeInfo {
	return []WorkflowTypeInfo{
		{
			Name:        WorkflowTypeSequential,
			Description: "Tasks run one at a time in declared order, each agent handing its output to the next",
			UseCases: []string{
				"Pipelines where each task builds on the previous result",
				"Code review chains (implement, review, fix)",
			},
		},
		{
			Name:        WorkflowTypeOrchestrator,
			Description: "Iterative re-planning over the task set, bounded by a maximum number of passes",
			UseCases: []string{
				"Task sets with cross-task dependencies",
				"Work that may need repeated passes to converge",
			},
		},
		{
			Name:        WorkflowTypeParallel,
			Description: "Independent tasks fan out to concurrent agents with a join at the end",
			UseCases: []string{
				"Bulk independent work items",
				"Exploring multiple approaches simultaneously",
			},
		},
	}
}

// ValidWorkflowType reports whether t is one of the supported types.
func ValidWorkflowType(t WorkflowType) bool {
	switch t {
	case WorkflowTypeSequential, WorkflowTypeOrchestrator, WorkflowTypeParallel:
		return true
	default:
		return false
	}
}
