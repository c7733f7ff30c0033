// Package main provides the Maestro API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/atrox/maestro/pkg/engine"
	"github.com/atrox/maestro/pkg/eventbus"
	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/registry"
	"github.com/atrox/maestro/pkg/services"
	"github.com/atrox/maestro/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	runner      engine.AgentRunner
	tracer      trace.Tracer
	validate    *validator.Validate

	engine *engine.Engine
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	runner engine.AgentRunner,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		runner:      runner,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	a.engine = engine.NewEngine(a.logger, a.persistence, a.registry, a.eventBus, a.runner, a.tracer)

	patternService := services.NewPattern(a.persistence, a.registry, a.engine)
	executionService := services.NewExecution(a.persistence, a.engine)
	analyzer := services.NewAnalyzer(a.registry)

	handlers := web.NewAPIHandlers(patternService, executionService, analyzer, a.engine, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Maestro API")
	})

	w := app.Group("/workflows")
	w.Post("/analyze", handlers.Analyze)
	w.Get("/types", handlers.GetWorkflowTypes)

	w.Get("/patterns", handlers.GetPatterns)
	w.Post("/patterns", handlers.CreatePattern)
	w.Get("/patterns/:id", handlers.GetPattern)
	w.Put("/patterns/:id", handlers.UpdatePattern)
	w.Delete("/patterns/:id", handlers.DeletePattern)

	w.Post("/execute/:patternId", handlers.ExecutePattern)

	w.Get("/executions", handlers.GetExecutions)
	w.Get("/executions/:id", handlers.GetExecution)
	w.Post("/executions/:id/abort", handlers.AbortExecution)
	w.Delete("/executions/:id", handlers.DeleteExecution)

	w.Get("/communications/:executionId", handlers.GetCommunications)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

// Shutdown waits for in-flight executions before releasing resources.
func (a *API) Shutdown(ctx context.Context) error {
	if a.engine == nil {
		return nil
	}

	return a.engine.Shutdown(ctx)
}
