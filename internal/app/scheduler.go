package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/GoArmGo/AppStore/internal/messaging/payloads"
)

// cronLogger передает сообщения cron в slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// newScheduler регистрирует задания обслуживания по расписаниям RETENTION_SCHEDULE и BACKUP_SCHEDULE.
// Возвращает nil, если ни одно расписание не задано.
func newScheduler(
	ctx context.Context,
	retentionSpec, backupSpec string,
	handle func(context.Context, payloads.MaintenancePayload) error,
	logger *slog.Logger,
) (*cron.Cron, error) {
	if retentionSpec == "" && backupSpec == "" {
		return nil, nil
	}

	c := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)

	add := func(spec string, payload payloads.MaintenancePayload) error {
		if spec == "" {
			return nil
		}
		_, err := c.AddFunc(spec, func() {
			// ошибка уже залогирована обработчиком
			_ = handle(ctx, payload)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s job: %w", spec, payload.Job, err)
		}
		logger.Info("maintenance job scheduled", "job", payload.Job, "schedule", spec)
		return nil
	}

	if err := add(retentionSpec, payloads.MaintenancePayload{Job: payloads.JobCleanup}); err != nil {
		return nil, err
	}
	if err := add(backupSpec, payloads.MaintenancePayload{Job: payloads.JobBackup}); err != nil {
		return nil, err
	}
	return c, nil
}
