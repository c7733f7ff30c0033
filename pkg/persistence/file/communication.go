package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/atrox/maestro/pkg/models"
)

// CommunicationRepository stores each execution's message log as a single
// JSON file. Appends are serialized per execution id; nothing else locks.
type CommunicationRepository struct {
	root  string
	locks *keyedLocks
}

// NewCommunicationRepository creates a new communication repository.
func NewCommunicationRepository(root string) *CommunicationRepository {
	return &CommunicationRepository{root: root, locks: newKeyedLocks()}
}

func (cr *CommunicationRepository) logPath(executionID string) string {
	return filepath.Clean(path.Join(cr.root, "communications", executionID+".json"))
}

func (cr *CommunicationRepository) read(executionID string) ([]*models.AgentCommunication, error) {
	body, err := os.ReadFile(cr.logPath(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.AgentCommunication{}, nil
		}

		return nil, fmt.Errorf("failed to read communication log for execution %s: %w", executionID, err)
	}

	var comms []*models.AgentCommunication

	err = json.Unmarshal(body, &comms)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal communication log for execution %s: %w", executionID, err)
	}

	return comms, nil
}

// Append adds an entry to an execution's message log.
func (cr *CommunicationRepository) Append(_ context.Context, comm *models.AgentCommunication) error {
	lock := cr.locks.forKey(comm.ExecutionID)
	lock.Lock()
	defer lock.Unlock()

	comms, err := cr.read(comm.ExecutionID)
	if err != nil {
		return err
	}

	comms = append(comms, comm)

	dir := path.Join(cr.root, "communications")

	err = os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create communications directory: %w", err)
	}

	data, err := json.MarshalIndent(comms, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal communication log for execution %s: %w", comm.ExecutionID, err)
	}

	return os.WriteFile(cr.logPath(comm.ExecutionID), data, 0600)
}

// ListByExecution returns an execution's messages ordered by timestamp.
func (cr *CommunicationRepository) ListByExecution(_ context.Context, executionID string) ([]*models.AgentCommunication, error) {
	comms, err := cr.read(executionID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(comms, func(i, j int) bool {
		return comms[i].Timestamp.Before(comms[j].Timestamp)
	})

	return comms, nil
}

// DeleteByExecution removes an execution's whole message log. Used only by
// the execution-delete cascade.
func (cr *CommunicationRepository) DeleteByExecution(_ context.Context, executionID string) error {
	lock := cr.locks.forKey(executionID)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(cr.logPath(executionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete communication log for execution %s: %w", executionID, err)
	}

	return nil
}
