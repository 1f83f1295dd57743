package tasks

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic_app_echo/internal/metrics"
	"clinic_app_echo/internal/models"
)

// Runner executes due scheduled tasks
type Runner struct {
	db       *gorm.DB
	registry *Registry
	metrics  *metrics.ClinicMetrics
	now      func() time.Time
}

// NewRunner creates a runner over the given registry
func NewRunner(db *gorm.DB, registry *Registry, m *metrics.ClinicMetrics) *Runner {
	return &Runner{db: db, registry: registry, metrics: m, now: time.Now}
}

// ProcessDue runs every active task whose due time has passed, one at a time
func (r *Runner) ProcessDue(ctx context.Context) error {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due").
		Find(&pending).Error
	if err != nil {
		return errors.Wrap(err, "fetch pending tasks")
	}

	if len(pending) == 0 {
		zap.L().Debug("no pending tasks")
		return nil
	}
	zap.L().Info("processing pending tasks", zap.Int("count", len(pending)))

	for _, task := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.Execute(ctx, task)
	}
	return nil
}

// Execute runs one task, retrying up to MaxAttempt times, records every
// attempt in history and moves the task to its next state.
func (r *Runner) Execute(ctx context.Context, task models.ScheduledTask) {
	log := zap.L().With(zap.Uint("task_id", task.ID), zap.String("task", task.TaskName))

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Warn("task handler not found, marking as failure")
		now := r.now()
		r.writeHistory(ctx, task, now, 0, "handler_not_found", 1, map[string]interface{}{"error": "Handler not found"})
		r.update(ctx, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		r.metrics.ObserveTask(task.TaskName, "handler_not_found")
		return
	}

	attempts := task.MaxAttempt
	if attempts < 1 {
		attempts = 1
	}

	var (
		startTime time.Time
		succeeded bool
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		startTime = r.now()
		result, err := handler(ctx, r.db, task)
		runtime := int(time.Since(startTime).Milliseconds())

		if err != nil {
			log.Warn("task attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			r.writeHistory(ctx, task, startTime, runtime, "failure", attempt, map[string]interface{}{"error": err.Error()})
			continue
		}

		log.Info("task completed", zap.Int("attempt", attempt), zap.Int("runtime_ms", runtime))
		r.writeHistory(ctx, task, startTime, runtime, "success", attempt, result)
		succeeded = true
		break
	}

	status, due := nextState(task, succeeded, r.now())
	updates := map[string]interface{}{
		"status":   status,
		"last_run": &startTime,
	}
	if !due.Equal(task.Due) {
		updates["due"] = due
	}
	r.update(ctx, task, updates)

	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	r.metrics.ObserveTask(task.TaskName, outcome)
}

// nextState decides where a task goes after a run. Recurring tasks advance to
// the next occurrence after now; a rule with no future occurrence ends the task.
func nextState(task models.ScheduledTask, succeeded bool, now time.Time) (models.ScheduledTaskStatus, time.Time) {
	if !succeeded {
		return models.ScheduledTaskStatusFailure, task.Due
	}
	if task.TaskType != models.ScheduledTaskTypeRecurring {
		return models.ScheduledTaskStatusDone, task.Due
	}

	next := task.NextDue(now)
	if next.After(now) && next.After(task.Due) {
		return models.ScheduledTaskStatusActive, next
	}
	return models.ScheduledTaskStatusDone, task.Due
}

func (r *Runner) writeHistory(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtime int, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		Runtime:         runtime,
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		zap.L().Error("failed to write task history", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}

func (r *Runner) update(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledTask{ID: task.ID}).Updates(updates).Error; err != nil {
		zap.L().Error("failed to update task", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}
