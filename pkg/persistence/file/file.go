// Package file provides file-based persistence for patterns, executions and
// the communication log.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/atrox/maestro/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root     string
	patterns *PatternRepository
	execs    *ExecutionRepository
	comms    *CommunicationRepository
}

// keyedLocks serializes writes per entity id. Reads go through without locks;
// they see whole-file snapshots.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (kl *keyedLocks) forKey(key string) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	lock, ok := kl.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		kl.locks[key] = lock
	}

	return lock
}

// NewPersistence creates a new file persistence rooted at the given directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:     cleanRoot,
		patterns: NewPatternRepository(cleanRoot),
		execs:    NewExecutionRepository(cleanRoot),
		comms:    NewCommunicationRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) PatternRepository() persistence.PatternRepository {
	return fp.patterns
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.execs
}

func (fp *Persistence) CommunicationRepository() persistence.CommunicationRepository {
	return fp.comms
}
