package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/messaging/payloads"
	"github.com/GoArmGo/AppStore/internal/metrics"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// maintenanceHandler возвращает обработчик заданий обслуживания. Один и тот же обработчик
// используют потребитель RabbitMQ и встроенный планировщик.
func maintenanceHandler(
	maintenance usecase.MaintenanceUseCase,
	defaultDays int,
	logger *slog.Logger,
) func(context.Context, payloads.MaintenancePayload) error {
	return func(ctx context.Context, payload payloads.MaintenancePayload) error {
		start := time.Now()

		switch payload.Job {
		case payloads.JobCleanup:
			days := payload.MaxAgeDays
			if days == 0 {
				days = defaultDays
			}
			removed, err := maintenance.Cleanup(ctx, days)
			metrics.RecordMaintenance(payload.Job, removed, err == nil)
			if err != nil {
				logger.Error("cleanup job failed", "max_age_days", days, "error", err)
				return err
			}
			logger.Info("cleanup job finished",
				"max_age_days", days,
				"removed", removed,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil

		case payloads.JobBackup:
			backup, err := maintenance.Backup(ctx)
			metrics.RecordMaintenance(payload.Job, 0, err == nil)
			if err != nil {
				logger.Error("backup job failed", "error", err)
				return err
			}
			logger.Info("backup job finished",
				"location", backup.Location,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil

		default:
			return domain.NewValidationError("job", fmt.Sprintf("unknown maintenance job %q", payload.Job))
		}
	}
}

// startConsumer подписывает обработчик на очередь заданий; без RabbitMQ ничего не делает
func (a *App) startConsumer(ctx context.Context) error {
	if a.consumer == nil {
		a.logger.Info("RabbitMQ is not configured, maintenance queue consumer disabled")
		return nil
	}

	handle := maintenanceHandler(a.maintenance, a.Config.RetentionMaxAgeDays, a.logger)
	if err := a.consumer.StartConsumingMaintenanceJobs(ctx, handle); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}
	return nil
}

// runEnqueue публикует одно задание и завершает работу
func (a *App) runEnqueue(ctx context.Context, job string, days int) error {
	if a.publisher == nil {
		return fmt.Errorf("RABBITMQ_URL must be set for enqueue mode")
	}

	payload := payloads.MaintenancePayload{Job: job}
	switch job {
	case payloads.JobCleanup:
		payload.MaxAgeDays = days
		if payload.MaxAgeDays == 0 {
			payload.MaxAgeDays = a.Config.RetentionMaxAgeDays
		}
		if payload.MaxAgeDays < 1 {
			return domain.NewValidationError("days", "must be at least 1")
		}
	case payloads.JobBackup:
	default:
		return domain.NewValidationError("job", fmt.Sprintf("unknown maintenance job %q (use %q or %q)", job, payloads.JobCleanup, payloads.JobBackup))
	}

	return a.publisher.PublishMaintenanceJob(ctx, payload)
}
