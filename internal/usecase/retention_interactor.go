package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
)

// maintenanceUseCase implements MaintenanceUseCase
type maintenanceUseCase struct {
	store  ports.RecordStore
	logger *slog.Logger
	now    func() time.Time
}

// NewMaintenanceUseCase создает новый экземпляр MaintenanceUseCase
func NewMaintenanceUseCase(store ports.RecordStore, logger *slog.Logger) MaintenanceUseCase {
	return &maintenanceUseCase{store: store, logger: logger, now: time.Now}
}

// Cleanup оставляет только приложения, созданные строго позже now - maxAgeDays.
// Если удалять нечего, документ не перезаписывается. Перед удалением делается
// резервная копия; ее сбой только логируется. Файлы приложений не удаляются.
func (uc *maintenanceUseCase) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 1 {
		return 0, domain.NewValidationError("days", "must be at least 1")
	}

	start := time.Now()
	removed := 0

	err := uc.store.Update(ctx, func(ctx context.Context, db *domain.Database) (bool, error) {
		cutoff := uc.now().AddDate(0, 0, -maxAgeDays)

		kept := make([]domain.App, 0, len(db.Apps))
		for _, a := range db.Apps {
			if a.CreatedAt.After(cutoff) {
				kept = append(kept, a)
			}
		}
		removed = len(db.Apps) - len(kept)
		if removed == 0 {
			return false, nil
		}

		if _, err := uc.store.BackupSnapshot(ctx, db); err != nil {
			uc.logger.Warn("backup before cleanup failed, continuing", "error", err)
		}

		db.Apps = kept
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	uc.logger.Info("cleanup finished",
		"max_age_days", maxAgeDays,
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return removed, nil
}

// Backup делает резервную копию текущего состояния
func (uc *maintenanceUseCase) Backup(ctx context.Context) (ports.BackupHandle, error) {
	return uc.store.Backup(ctx)
}
