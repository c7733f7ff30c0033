package services

import (
	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/registry"
)

// Analysis reports the structural facts an analysis observed.
type Analysis struct {
	AgentCount      int    `json:"agent_count"`
	TaskCount       int    `json:"task_count"`
	HasDependencies bool   `json:"has_dependencies"`
	Reason          string `json:"reason"`
}

// AnalysisResult is the advisory output of the workflow analyzer.
type AnalysisResult struct {
	RecommendedWorkflow models.WorkflowType `json:"recommended_workflow"`
	Analysis            Analysis            `json:"analysis"`
}

// Analyzer recommends a workflow type for a proposed set of agents and tasks.
type Analyzer struct {
	registry *registry.Registry
}

// NewAnalyzer creates a new analyzer backed by the definition registry.
func NewAnalyzer(reg *registry.Registry) *Analyzer {
	return &Analyzer{registry: reg}
}

// Analyze is a pure function of its inputs: no side effects, no persistence,
// and it never fails. Malformed or empty inputs yield the sequential default
// with zeroed counts.
//
// Precedence:
//  1. dependencies present and more than one agent -> orchestrator
//  2. more than one agent, task count matches agent count, no dependencies -> sequential
//  3. otherwise -> sequential (parallel is only ever suggested explicitly,
//     never inferred from counts alone)
func (a *Analyzer) Analyze(agentIDs, taskIDs []string, objective string) AnalysisResult {
	_ = objective // guides the caller, not interpreted here

	analysis := Analysis{
		AgentCount:      len(agentIDs),
		TaskCount:       len(taskIDs),
		HasDependencies: a.hasDependencies(taskIDs),
	}

	switch {
	case analysis.HasDependencies && analysis.AgentCount > 1:
		analysis.Reason = "tasks declare cross-dependencies and multiple agents are available"

		return AnalysisResult{RecommendedWorkflow: models.WorkflowTypeOrchestrator, Analysis: analysis}

	case analysis.AgentCount > 1 && analysis.TaskCount == analysis.AgentCount:
		analysis.Reason = "one independent task per agent in declared order"

		return AnalysisResult{RecommendedWorkflow: models.WorkflowTypeSequential, Analysis: analysis}

	default:
		analysis.Reason = "sequential is the safe default"

		return AnalysisResult{RecommendedWorkflow: models.WorkflowTypeSequential, Analysis: analysis}
	}
}

// hasDependencies is true iff any supplied task declares a dependency on
// another task in the supplied set.
func (a *Analyzer) hasDependencies(taskIDs []string) bool {
	inSet := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		inSet[id] = true
	}

	for _, id := range taskIDs {
		task := a.registry.Task(id)
		if task == nil {
			continue
		}

		for _, dep := range task.DependsOn {
			if inSet[dep] {
				return true
			}
		}
	}

	return false
}
