package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atrox/maestro/pkg/models"
)

// CommunicationRepository handles the agent communication log.
type CommunicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCommunicationRepository creates a new communication repository.
func NewCommunicationRepository(db *sql.DB, logger *slog.Logger) *CommunicationRepository {
	return &CommunicationRepository{db: db, logger: logger}
}

func (r *CommunicationRepository) Append(ctx context.Context, comm *models.AgentCommunication) error {
	contextJSON, err := json.Marshal(comm.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	query := `
		INSERT INTO agent_communications (id, execution_id, from_agent_id,
to_agent_id, message, message_type, context, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		comm.ID,
		comm.ExecutionID,
		comm.FromAgentID,
		comm.ToAgentID,
		comm.Message,
		comm.MessageType,
		contextJSON,
		comm.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append communication: %w", err)
	}

	return nil
}

func (r *CommunicationRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.AgentCommunication, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , from_agent_id
		  , to_agent_id
		  , message
		  , message_type
		  , context
		  , timestamp
		FROM agent_communications
		WHERE execution_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query communications: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comms := make([]*models.AgentCommunication, 0)

	for rows.Next() {
		var (
			comm        models.AgentCommunication
			contextJSON []byte
		)

		err := rows.Scan(
			&comm.ID,
			&comm.ExecutionID,
			&comm.FromAgentID,
			&comm.ToAgentID,
			&comm.Message,
			&comm.MessageType,
			&contextJSON,
			&comm.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}

		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &comm.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context: %w", err)
			}
		}

		comms = append(comms, &comm)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating communications: %w", err)
	}

	return comms, nil
}

func (r *CommunicationRepository) DeleteByExecution(ctx context.Context, executionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM agent_communications WHERE execution_id = $1", executionID)
	if err != nil {
		return fmt.Errorf("failed to delete communications: %w", err)
	}

	return nil
}
