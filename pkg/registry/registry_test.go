package registry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/atrox/maestro/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestRegistry_LoadDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeDefinition(t, filepath.Join(root, "agents"), "coder.json", `{
		"id": "coder",
		"name": "Coder",
		"role": "implementation",
		"settings": {"retry_count": 2}
	}`)
	writeDefinition(t, filepath.Join(root, "tasks"), "review.json", `{
		"id": "review",
		"name": "Review",
		"depends_on": ["implement"]
	}`)

	reg := NewRegistry(testLogger())
	require.NoError(t, reg.LoadDirectory(root))

	agent := reg.Agent("coder")
	require.NotNil(t, agent)
	assert.Equal(t, "Coder", agent.Name)
	assert.Equal(t, 2, agent.Settings.RetryCount)

	task := reg.Task("review")
	require.NotNil(t, task)
	assert.Equal(t, []string{"implement"}, task.DependsOn)
}

func TestRegistry_LoadDirectoryRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subdir  string
		file    string
		content string
	}{
		{"agent missing name", "agents", "bad.json", `{"id": "bad"}`},
		{"agent empty id", "agents", "bad.json", `{"id": "", "name": "Bad"}`},
		{"task wrong depends_on type", "tasks", "bad.json", `{"id": "bad", "name": "Bad", "depends_on": "implement"}`},
		{"malformed json", "tasks", "bad.json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeDefinition(t, filepath.Join(root, tt.subdir), tt.file, tt.content)

			reg := NewRegistry(testLogger())
			assert.Error(t, reg.LoadDirectory(root))
		})
	}
}

func TestRegistry_LoadDirectoryMissingSubdirs(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())

	// An empty root has no agents/ or tasks/ directories; nothing to load.
	require.NoError(t, reg.LoadDirectory(t.TempDir()))

	_, healthy := reg.HealthCheck()
	assert.False(t, healthy)
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())
	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Coder"})
	reg.RegisterTask(&models.TaskDefinition{ID: "implement", Name: "Implement"})

	assert.True(t, reg.ResolveAgents([]string{"coder"}))
	assert.False(t, reg.ResolveAgents([]string{"coder", "ghost"}))
	assert.True(t, reg.ResolveTasks([]string{"implement"}))
	assert.False(t, reg.ResolveTasks([]string{"ghost"}))

	// Empty id lists resolve trivially.
	assert.True(t, reg.ResolveAgents(nil))
	assert.True(t, reg.ResolveTasks(nil))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())
	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Coder"})
	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Better coder"})

	agent := reg.Agent("coder")
	require.NotNil(t, agent)
	assert.Equal(t, "Better coder", agent.Name)
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())

	_, healthy := reg.HealthCheck()
	assert.False(t, healthy)

	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Coder"})

	message, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.Contains(t, message, "1 agents")
}
