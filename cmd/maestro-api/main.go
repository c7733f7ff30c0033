package main

import (
	"context"
	"os"
	"time"

	"github.com/atrox/maestro/pkg/cmd"
	"github.com/atrox/maestro/pkg/janitor"
	"github.com/atrox/maestro/pkg/log"
	"github.com/atrox/maestro/pkg/otelhelper"
	"github.com/atrox/maestro/pkg/runner"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "maestro-api",
		Usage:                 "Create and execute multi-agent workflow patterns",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "definitions-path",
				Usage:   "Path to the directory containing agent and task definitions",
				Value:   "./definitions",
				Sources: cli.EnvVars("DEFINITIONS_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "agent-command",
				Usage:   "Command invoked to run one agent step",
				Value:   "claude",
				Sources: cli.EnvVars("AGENT_COMMAND"),
			},
			&cli.DurationFlag{
				Name:    "execution-retention",
				Usage:   "Age past which terminal executions are pruned",
				Value:   30 * 24 * time.Hour,
				Sources: cli.EnvVars("EXECUTION_RETENTION"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Maestro API")

			registry := cmd.NewRegistry(logger, command.String("definitions-path"))
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			agentRunner, err := runner.NewCommandRunner(logger, command.String("agent-command"))
			if err != nil {
				return err
			}

			var tracer trace.Tracer

			if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
				tracer, err = otelhelper.NewTracer(ctx, "maestro-api")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
					tracer = nil
				}
			}

			sweeper := janitor.NewJanitor(logger, persistence, command.Duration("execution-retention"))

			sweeper.Start()
			defer sweeper.Stop()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				agentRunner,
				tracer,
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
