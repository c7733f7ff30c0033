// Package web provides HTTP handlers for the workflow orchestration API.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atrox/maestro/pkg/engine"
	"github.com/atrox/maestro/pkg/models"
	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/atrox/maestro/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	patternService   *services.Pattern
	executionService *services.Execution
	analyzer         *services.Analyzer
	engine           *engine.Engine
	validator        *validator.Validate
	registry         *registry.Registry
}

func NewAPIHandlers(
	patternService *services.Pattern,
	executionService *services.Execution,
	analyzer *services.Analyzer,
	eng *engine.Engine,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		patternService:   patternService,
		executionService: executionService,
		analyzer:         analyzer,
		engine:           eng,
		validator:        validator,
		registry:         registry,
	}
}

// Analyze recommends a workflow type for the proposed agents and tasks.
// The analysis never fails; malformed input yields the default.
func (h *APIHandlers) Analyze(c fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result := h.analyzer.Analyze(req.AgentIDs, req.TaskIDs, req.UserObjective)

	return c.JSON(result)
}

func (h *APIHandlers) CreatePattern(c fiber.Ctx) error {
	var req CreatePatternRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	pattern := patternFromRequest(&req)

	created, err := h.patternService.Create(c.Context(), pattern)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetPatterns(c fiber.Ctx) error {
	patterns, err := h.patternService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"patterns":    patterns,
		"total_count": len(patterns),
	})
}

func (h *APIHandlers) GetPattern(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pattern ID is required")
	}

	pattern, err := h.patternService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsPatternNotFound(err) {
			return notFound(c, "Pattern not found")
		}

		return internalError(c, err)
	}

	return c.JSON(pattern)
}

func (h *APIHandlers) UpdatePattern(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pattern ID is required")
	}

	var req UpdatePatternRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	pattern := patternFromRequest(&req.CreatePatternRequest)
	pattern.Status = req.Status

	updated, err := h.patternService.Update(c.Context(), id, pattern)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePattern(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pattern ID is required")
	}

	force := false

	if forceStr := c.Query("force"); forceStr != "" {
		parsed, err := strconv.ParseBool(forceStr)
		if err != nil {
			return badRequest(c, "Invalid force parameter")
		}

		force = parsed
	}

	err := h.patternService.Delete(c.Context(), id, force)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecutePattern starts an execution and returns the pending/running record
// immediately; the engine drives the steps asynchronously.
func (h *APIHandlers) ExecutePattern(c fiber.Ctx) error {
	patternID := c.Params("patternId")
	if patternID == "" {
		return badRequest(c, "Pattern ID is required")
	}

	var req ExecuteRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	pattern, err := h.patternService.FetchByID(c.Context(), patternID)
	if err != nil {
		return handleServiceError(c, err)
	}

	execution, err := h.engine.Execute(c.Context(), pattern, req.Context)
	if err != nil {
		if errors.Is(err, engine.ErrPatternNotExecutable) {
			return badRequest(c, err.Error())
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) AbortExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.Abort(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) DeleteExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	err := h.executionService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetCommunications(c fiber.Ctx) error {
	executionID := c.Params("executionId")
	if executionID == "" {
		return badRequest(c, "Execution ID is required")
	}

	comms, err := h.executionService.Communications(c.Context(), executionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"execution_id":   executionID,
		"communications": comms,
		"total_count":    len(comms),
	})
}

func (h *APIHandlers) GetWorkflowTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"workflow_types": models.WorkflowTypes(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.patternService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Maestro API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Maestro API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func patternFromRequest(req *CreatePatternRequest) *models.WorkflowPattern {
	return &models.WorkflowPattern{
		Name:              req.Name,
		Description:       req.Description,
		AgentIDs:          req.AgentIDs,
		TaskIDs:           req.TaskIDs,
		UserObjective:     req.UserObjective,
		WorkflowType:      req.WorkflowType,
		ProjectDirectory:  req.ProjectDirectory,
		MaxIterations:     req.MaxIterations,
		MaxParallel:       req.MaxParallel,
		StepTimeout:       time.Duration(req.StepTimeoutSecs) * time.Second,
		RetryFailedSteps:  req.RetryFailedSteps,
		ContinueOnFailure: req.ContinueOnFailure,
	}
}
