// Package registry loads and resolves agent and task definitions.
package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/atrox/maestro/pkg/models"
)

// Registry holds the known agent and task definitions. Patterns reference
// definitions by id; integrity checks resolve those references against the
// registry's current contents.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	agents map[string]*models.AgentDefinition
	tasks  map[string]*models.TaskDefinition
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		agents: make(map[string]*models.AgentDefinition),
		tasks:  make(map[string]*models.TaskDefinition),
	}
}

// LoadDirectory reads agent definitions from <root>/agents/*.json and task
// definitions from <root>/tasks/*.json. Each file is validated against its
// schema before registration; a file that fails validation aborts the load.
func (r *Registry) LoadDirectory(root string) error {
	if err := r.loadDefinitions(path.Join(root, "agents"), r.registerAgentFile); err != nil {
		return fmt.Errorf("failed to load agent definitions: %w", err)
	}

	if err := r.loadDefinitions(path.Join(root, "tasks"), r.registerTaskFile); err != nil {
		return fmt.Errorf("failed to load task definitions: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	r.logger.Info("Loaded definitions", "agents", len(r.agents), "tasks", len(r.tasks))

	return nil
}

func (r *Registry) loadDefinitions(dir string, register func(data []byte) error) error {
	root := os.DirFS(dir)

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list definition files in %s: %w", dir, err)
	}

	for _, file := range files {
		data, err := os.ReadFile(filepath.Clean(path.Join(dir, file)))
		if err != nil {
			return fmt.Errorf("failed to read definition file %s: %w", file, err)
		}

		if err := register(data); err != nil {
			return fmt.Errorf("invalid definition file %s: %w", file, err)
		}
	}

	return nil
}

func (r *Registry) registerAgentFile(data []byte) error {
	if err := validateAgentDefinition(data); err != nil {
		return err
	}

	var agent models.AgentDefinition
	if err := json.Unmarshal(data, &agent); err != nil {
		return fmt.Errorf("failed to unmarshal agent definition: %w", err)
	}

	r.RegisterAgent(&agent)

	return nil
}

func (r *Registry) registerTaskFile(data []byte) error {
	if err := validateTaskDefinition(data); err != nil {
		return err
	}

	var task models.TaskDefinition
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task definition: %w", err)
	}

	r.RegisterTask(&task)

	return nil
}

// RegisterAgent adds or replaces an agent definition.
func (r *Registry) RegisterAgent(agent *models.AgentDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = agent
}

// RegisterTask adds or replaces a task definition.
func (r *Registry) RegisterTask(task *models.TaskDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

// Agent returns the agent definition for id, or nil when unknown.
func (r *Registry) Agent(id string) *models.AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.agents[id]
}

// Task returns the task definition for id, or nil when unknown.
func (r *Registry) Task(id string) *models.TaskDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tasks[id]
}

// ResolveAgents reports whether every id resolves to a registered agent.
func (r *Registry) ResolveAgents(ids []string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range ids {
		if _, ok := r.agents[id]; !ok {
			return false
		}
	}

	return true
}

// ResolveTasks reports whether every id resolves to a registered task.
func (r *Registry) ResolveTasks(ids []string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range ids {
		if _, ok := r.tasks[id]; !ok {
			return false
		}
	}

	return true
}

// HealthCheck reports whether the registry holds any definitions.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.agents) == 0 && len(r.tasks) == 0 {
		return "Registry is empty", false
	}

	return fmt.Sprintf("Registry holds %d agents and %d tasks", len(r.agents), len(r.tasks)), true
}
