// Package janitor prunes old terminal executions on a schedule. Executions
// that are still pending or running are never touched, whatever their age.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/atrox/maestro/pkg/persistence"
	"github.com/robfig/cron/v3"
)

const defaultSchedule = "17 3 * * *"

// Janitor deletes terminal executions older than the retention window,
// cascading their communication log entries.
type Janitor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	retention   time.Duration
	schedule    string
	cron        *cron.Cron
}

func NewJanitor(logger *slog.Logger, p persistence.Persistence, retention time.Duration) *Janitor {
	return &Janitor{
		logger:      logger.With("module", "janitor"),
		persistence: p,
		retention:   retention,
		schedule:    defaultSchedule,
	}
}

// WithSchedule overrides the default daily cron expression.
func (j *Janitor) WithSchedule(schedule string) *Janitor {
	j.schedule = schedule

	return j
}

func (j *Janitor) Start() {
	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("Retention sweep failed", "error", err)
		}
	})
	if err != nil {
		j.logger.Error("Failed to schedule retention sweep", "error", err)

		return
	}

	j.cron.Start()
	j.logger.Info("Retention sweep scheduled", "schedule", j.schedule, "retention", j.retention)
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// Sweep deletes every terminal execution whose last update is older than the
// retention window. It returns the number of executions removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	executions, err := j.persistence.ExecutionRepository().List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-j.retention)
	removed := 0

	for _, execution := range executions {
		if !execution.Status.Terminal() {
			continue
		}

		if execution.UpdatedAt.After(cutoff) {
			continue
		}

		err := j.persistence.CommunicationRepository().DeleteByExecution(ctx, execution.ID)
		if err != nil {
			j.logger.Error("Failed to delete communications", "execution_id", execution.ID, "error", err)

			continue
		}

		err = j.persistence.ExecutionRepository().Delete(ctx, execution.ID)
		if err != nil {
			j.logger.Error("Failed to delete execution", "execution_id", execution.ID, "error", err)

			continue
		}

		removed++
	}

	if removed > 0 {
		j.logger.Info("Retention sweep finished", "removed", removed)
	}

	return removed, nil
}
