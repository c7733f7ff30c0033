package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
)

// PatternRepository handles pattern-related file operations.
type PatternRepository struct {
	root  string
	locks *keyedLocks
}

// NewPatternRepository creates a new pattern repository.
func NewPatternRepository(root string) *PatternRepository {
	return &PatternRepository{root: root, locks: newKeyedLocks()}
}

// GetByID retrieves a pattern by its ID from the file system.
func (pr *PatternRepository) GetByID(_ context.Context, id string) (*models.WorkflowPattern, error) {
	filePath := filepath.Clean(path.Join(pr.root, "patterns", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch pattern %s: %w", id, err)
	}

	var pattern models.WorkflowPattern

	err = json.Unmarshal(body, &pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pattern %s: %w", id, err)
	}

	return &pattern, nil
}

// GetAll returns every stored pattern, newest first.
func (pr *PatternRepository) GetAll(ctx context.Context) ([]*models.WorkflowPattern, error) {
	root := os.DirFS(path.Join(pr.root, "patterns"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern files: %w", err)
	}

	patterns := make([]*models.WorkflowPattern, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // Remove .json extension

		pattern, err := pr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load pattern %s: %w", id, err)
		}

		if pattern != nil {
			patterns = append(patterns, pattern)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].CreatedAt.After(patterns[j].CreatedAt)
	})

	return patterns, nil
}

// Save writes a pattern to the file system. Writes to the same pattern id
// are serialized.
func (pr *PatternRepository) Save(_ context.Context, pattern *models.WorkflowPattern) error {
	lock := pr.locks.forKey(pattern.ID)
	lock.Lock()
	defer lock.Unlock()

	dir := path.Join(pr.root, "patterns")

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create patterns directory: %w", err)
	}

	data, err := json.MarshalIndent(pattern, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pattern %s: %w", pattern.ID, err)
	}

	return os.WriteFile(path.Join(dir, pattern.ID+".json"), data, 0600)
}

// Delete removes a pattern by its ID.
func (pr *PatternRepository) Delete(_ context.Context, id string) error {
	lock := pr.locks.forKey(id)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(path.Join(pr.root, "patterns", id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewPatternError("Delete", id, persistence.ErrPatternNotFound)
		}

		return fmt.Errorf("failed to delete pattern %s: %w", id, err)
	}

	return nil
}
