// Package persistence provides the data storage abstraction for patterns,
// executions and the communication log.
package persistence

import (
	"context"

	"github.com/atrox/maestro/pkg/models"
)

// Persistence aggregates the repositories a backend must provide.
type Persistence interface {
	PatternRepository() PatternRepository
	ExecutionRepository() ExecutionRepository
	CommunicationRepository() CommunicationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PatternRepository stores workflow pattern declarations. Implementations
// serialize writes per pattern id; reads are unrestricted snapshots.
type PatternRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowPattern, error)
	GetAll(ctx context.Context) ([]*models.WorkflowPattern, error)
	Save(ctx context.Context, pattern *models.WorkflowPattern) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records. List returns executions
// newest first. Writes to the same execution id are serialized.
type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context) ([]*models.WorkflowExecution, error)
	ListByPattern(ctx context.Context, patternID string) ([]*models.WorkflowExecution, error)
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	Delete(ctx context.Context, id string) error
}

// CommunicationRepository is the append-only inter-agent message log.
// Entries are only removed by the execution-delete cascade.
type CommunicationRepository interface {
	Append(ctx context.Context, comm *models.AgentCommunication) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.AgentCommunication, error)
	DeleteByExecution(ctx context.Context, executionID string) error
}
