package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/metrics"
	"github.com/google/uuid"
)

// appUseCase implements AppUseCase
type appUseCase struct {
	store         ports.RecordStore
	publicBaseURL string
	logger        *slog.Logger
	now           func() time.Time
}

// NewAppUseCase создает новый экземпляр AppUseCase.
// publicBaseURL используется для построения абсолютных ссылок на скачивание.
func NewAppUseCase(store ports.RecordStore, publicBaseURL string, logger *slog.Logger) AppUseCase {
	return &appUseCase{
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// PublishApp проверяет обязательные поля и добавляет приложение в каталог
func (uc *appUseCase) PublishApp(ctx context.Context, in PublishAppInput) (*domain.App, error) {
	start := time.Now()

	app := domain.App{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Platforms:   in.Platforms,
		FileURL:     strings.TrimSpace(in.FileURL),
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		Images:      in.Images,
		DeveloperID: strings.TrimSpace(in.DeveloperID),
	}

	switch {
	case app.Name == "":
		return nil, domain.NewValidationError("name", "is required")
	case app.Description == "":
		return nil, domain.NewValidationError("description", "is required")
	case app.FileURL == "":
		return nil, domain.NewValidationError("fileUrl", "is required")
	case app.DeveloperID == "":
		return nil, domain.NewValidationError("developerId", "is required")
	case in.FileSize < 0:
		return nil, domain.NewValidationError("fileSize", "must not be negative")
	}

	if app.Platforms == nil {
		app.Platforms = domain.Platforms{}
	}
	if app.Images == nil {
		app.Images = []string{}
	}

	err := uc.store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		app.DeveloperName = domain.UnknownDeveloperName
		if dev := db.FindUserByID(app.DeveloperID); dev != nil && dev.Name != "" {
			app.DeveloperName = dev.Name
		}
		now := uc.now().UTC()
		app.CreatedAt = now
		app.UpdatedAt = now
		app.Downloads = 0
		db.Apps = append(db.Apps, app)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("app published",
		"app_id", app.ID,
		"developer_id", app.DeveloperID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &app, nil
}

// GetApp получает приложение по ID
func (uc *appUseCase) GetApp(ctx context.Context, id string) (*domain.App, error) {
	var app domain.App
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		a := db.FindAppByID(id)
		if a == nil {
			return domain.ErrNotFound
		}
		app = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// DownloadURL возвращает абсолютную ссылку: относительный fileUrl дополняется публичным адресом сервера
func (uc *appUseCase) DownloadURL(ctx context.Context, id string) (string, error) {
	app, err := uc.GetApp(ctx, id)
	if err != nil {
		return "", err
	}
	if u, err := url.Parse(app.FileURL); err == nil && u.IsAbs() {
		return app.FileURL, nil
	}
	if !strings.HasPrefix(app.FileURL, "/") {
		return uc.publicBaseURL + "/" + app.FileURL, nil
	}
	return uc.publicBaseURL + app.FileURL, nil
}

// IncrementDownload увеличивает счетчик ровно на единицу внутри транзакции
func (uc *appUseCase) IncrementDownload(ctx context.Context, id string) (int64, error) {
	var downloads int64
	err := uc.store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		app := db.FindAppByID(id)
		if app == nil {
			return false, domain.ErrNotFound
		}
		app.Downloads++
		app.UpdatedAt = uc.now().UTC()
		downloads = app.Downloads
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordDownload()
	uc.logger.Debug("download recorded", "app_id", id, "downloads", downloads)
	return downloads, nil
}

// ListApps возвращает все приложения, новые первыми
func (uc *appUseCase) ListApps(ctx context.Context) ([]domain.App, error) {
	return uc.collect(ctx, func(domain.App) bool { return true }, true)
}

// ListByDeveloper возвращает приложения разработчика, новые первыми
func (uc *appUseCase) ListByDeveloper(ctx context.Context, developerID string) ([]domain.App, error) {
	return uc.collect(ctx, func(a domain.App) bool { return a.DeveloperID == developerID }, true)
}

// SearchApps ищет приложения по подстроке; результат в порядке коллекции
func (uc *appUseCase) SearchApps(ctx context.Context, query string) ([]domain.App, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []domain.App{}, nil
	}

	return uc.collect(ctx, func(a domain.App) bool {
		return strings.Contains(strings.ToLower(a.Name), query) ||
			strings.Contains(strings.ToLower(a.Description), query) ||
			strings.Contains(strings.ToLower(a.DeveloperName), query)
	}, false)
}

// Stats считает сводку по текущему снимку хранилища
func (uc *appUseCase) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		developers := make(map[string]struct{})
		for _, a := range db.Apps {
			stats.TotalDownloads += a.Downloads
			if a.DeveloperID != "" {
				developers[a.DeveloperID] = struct{}{}
			}
		}
		stats.TotalApps = len(db.Apps)
		stats.TotalDevelopers = len(developers)
		stats.TotalUsers = len(db.Users)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (uc *appUseCase) collect(ctx context.Context, match func(domain.App) bool, newestFirst bool) ([]domain.App, error) {
	apps := []domain.App{}
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		for _, a := range db.Apps {
			if match(a) {
				apps = append(apps, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newestFirst {
		sort.SliceStable(apps, func(i, j int) bool {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		})
	}
	return apps, nil
}
