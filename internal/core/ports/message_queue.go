package ports

import (
	"context"

	"github.com/GoArmGo/AppStore/internal/messaging/payloads"
)

// MaintenancePublisher публикует задания обслуживания (очистка, резервная копия) в очередь.
// Используется режимом enqueue, который запускают внешние планировщики.
type MaintenancePublisher interface {
	PublishMaintenanceJob(ctx context.Context, payload payloads.MaintenancePayload) error
}

// MaintenanceConsumer потребляет задания обслуживания.
// Сервер запускает потребителя в своем процессе, чтобы задания проходили через тот же guard.
type MaintenanceConsumer interface {
	StartConsumingMaintenanceJobs(ctx context.Context, handler func(context.Context, payloads.MaintenancePayload) error) error
}
