package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atrox/maestro/pkg/engine"
	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence/file"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/atrox/maestro/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(tempDir string) *fiber.App {
	persistence := file.NewPersistence(tempDir)

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAgent(&models.AgentDefinition{ID: "coder", Name: "Coder"})
	reg.RegisterAgent(&models.AgentDefinition{ID: "reviewer", Name: "Reviewer"})
	reg.RegisterTask(&models.TaskDefinition{ID: "implement", Name: "Implement"})
	reg.RegisterTask(&models.TaskDefinition{ID: "review", Name: "Review", DependsOn: []string{"implement"}})

	api := NewAPI(
		slog.Default(),
		persistence,
		reg,
		nil,
		func(_ context.Context, req engine.StepRequest) (map[string]any, error) {
			return map[string]any{"task": req.TaskID}, nil
		},
		nil,
	)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Maestro API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_HealthCheck(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any

	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}

func TestAPI_GetPatterns_Empty(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows/patterns", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Patterns   []models.WorkflowPattern `json:"patterns"`
		TotalCount int                      `json:"total_count"`
	}

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.Empty(t, body.Patterns)
	assert.Zero(t, body.TotalCount)
}

func TestAPI_CreatePattern(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	payload := map[string]any{
		"name":          "Review pipeline",
		"agent_ids":     []string{"coder", "reviewer"},
		"task_ids":      []string{"implement", "review"},
		"workflow_type": "sequential",
	}

	resp := postJSON(t, app, "/workflows/patterns", payload)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WorkflowPattern

	err := json.NewDecoder(resp.Body).Decode(&created)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Review pipeline", created.Name)
	assert.Equal(t, models.PatternStatusDraft, created.Status)
	assert.True(t, created.Metadata.AgentsValid)
	assert.True(t, created.Metadata.TasksValid)
}

func TestAPI_CreatePattern_ValidationError(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{
			name: "missing name",
			payload: map[string]any{
				"agent_ids": []string{"coder"},
				"task_ids":  []string{"implement"},
			},
		},
		{
			name: "no agents",
			payload: map[string]any{
				"name":     "Broken",
				"task_ids": []string{"implement"},
			},
		},
		{
			name: "duplicate tasks",
			payload: map[string]any{
				"name":      "Broken",
				"agent_ids": []string{"coder"},
				"task_ids":  []string{"implement", "implement"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/workflows/patterns", tt.payload)

			defer func() {
				err := resp.Body.Close()
				if err != nil {
					t.Logf("Failed to close response body: %v", err)
				}
			}()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPI_GetPattern_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows/patterns/non-existent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeletePattern(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	created := createTestPattern(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/workflows/patterns/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getReq := httptest.NewRequest(http.MethodGet, "/workflows/patterns/"+created.ID, nil)
	getResp, err := app.Test(getReq)
	require.NoError(t, err)

	defer func() {
		err := getResp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestAPI_Analyze(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	payload := map[string]any{
		"agent_ids": []string{"coder", "reviewer"},
		"task_ids":  []string{"implement", "review"},
	}

	resp := postJSON(t, app, "/workflows/analyze", payload)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.AnalysisResult

	err := json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowTypeOrchestrator, result.RecommendedWorkflow)
	assert.NotEmpty(t, result.Analysis.Reason)
}

func TestAPI_GetWorkflowTypes(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows/types", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		WorkflowTypes []models.WorkflowTypeInfo `json:"workflow_types"`
	}

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.Len(t, body.WorkflowTypes, 3)
}

func TestAPI_ExecutePattern(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	created := createTestPattern(t, app)

	resp := postJSON(t, app, "/workflows/execute/"+created.ID, map[string]any{
		"context": map[string]any{"branch": "main"},
	})

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var execution models.WorkflowExecution

	err := json.NewDecoder(resp.Body).Decode(&execution)
	require.NoError(t, err)
	assert.NotEmpty(t, execution.ID)
	assert.Equal(t, created.ID, execution.PatternID)

	final := waitForTerminal(t, app, execution.ID)
	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	assert.Len(t, final.CompletedTasks, 2)

	commReq := httptest.NewRequest(http.MethodGet, "/workflows/communications/"+execution.ID, nil)
	commResp, err := app.Test(commReq)
	require.NoError(t, err)

	defer func() {
		err := commResp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, commResp.StatusCode)

	var comms struct {
		ExecutionID    string                      `json:"execution_id"`
		Communications []models.AgentCommunication `json:"communications"`
		TotalCount     int                         `json:"total_count"`
	}

	err = json.NewDecoder(commResp.Body).Decode(&comms)
	require.NoError(t, err)
	assert.Equal(t, execution.ID, comms.ExecutionID)
	assert.NotEmpty(t, comms.Communications)
}

func TestAPI_ExecutePattern_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	resp := postJSON(t, app, "/workflows/execute/non-existent", nil)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetExecution_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows/executions/non-existent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteExecution(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	created := createTestPattern(t, app)

	resp := postJSON(t, app, "/workflows/execute/"+created.ID, nil)

	var execution models.WorkflowExecution

	err := json.NewDecoder(resp.Body).Decode(&execution)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	waitForTerminal(t, app, execution.ID)

	delReq := httptest.NewRequest(http.MethodDelete, "/workflows/executions/"+execution.ID, nil)
	delResp, err := app.Test(delReq)
	require.NoError(t, err)

	defer func() {
		err := delResp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
}

func createTestPattern(t *testing.T, app *fiber.App) *models.WorkflowPattern {
	t.Helper()

	payload := map[string]any{
		"name":          "Review pipeline",
		"agent_ids":     []string{"coder", "reviewer"},
		"task_ids":      []string{"implement", "review"},
		"workflow_type": "sequential",
	}

	resp := postJSON(t, app, "/workflows/patterns", payload)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WorkflowPattern

	err := json.NewDecoder(resp.Body).Decode(&created)
	require.NoError(t, err)

	return &created
}

func postJSON(t *testing.T, app *fiber.App, path string, payload map[string]any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func waitForTerminal(t *testing.T, app *fiber.App, executionID string) *models.WorkflowExecution {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/workflows/executions/"+executionID, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		var execution models.WorkflowExecution

		err = json.NewDecoder(resp.Body).Decode(&execution)
		require.NoError(t, resp.Body.Close())
		require.NoError(t, err)

		if execution.Status.Terminal() {
			return &execution
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("execution %s did not reach a terminal status", executionID)

	return nil
}
