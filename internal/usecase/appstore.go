package usecase

import (
	"context"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
)

// RegisterInput — данные регистрации. Для анонимной регистрации пароль игнорируется, email необязателен.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        domain.Role
	IsAnonymous bool
}

// AuthResult — пользователь без учетных данных и его токен доступа
type AuthResult struct {
	User  domain.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// PublishAppInput — метаданные публикуемого приложения. Файлы уже загружены в BlobStore.
type PublishAppInput struct {
	Name        string
	Description string
	Category    string
	Platforms   domain.Platforms
	FileURL     string
	FileName    string
	FileSize    int64
	Images      []string
	DeveloperID string
}

// Stats — сводка по магазину, считается по текущему состоянию хранилища
type Stats struct {
	TotalApps       int   `json:"totalApps"`
	TotalDevelopers int   `json:"totalDevelopers"`
	TotalDownloads  int64 `json:"totalDownloads"`
	TotalUsers      int   `json:"totalUsers"`
}

// AuthUseCase определяет операции с учетными записями
type AuthUseCase interface {
	// Register создает пользователя. Email уникален среди всех пользователей, у которых он есть.
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)

	// Login проверяет email и пароль. Любая неудача — одна и та же ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	// GetUser возвращает пользователя по ID
	GetUser(ctx context.Context, id string) (*domain.PublicUser, error)

	// EnsureAdmin создает администратора с указанным email, если такого пользователя еще нет
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.PublicUser, error)
}

// AppUseCase определяет операции с каталогом приложений
type AppUseCase interface {
	PublishApp(ctx context.Context, in PublishAppInput) (*domain.App, error)
	GetApp(ctx context.Context, id string) (*domain.App, error)

	// DownloadURL возвращает абсолютный адрес файла приложения
	DownloadURL(ctx context.Context, id string) (string, error)

	// IncrementDownload атомарно увеличивает счетчик скачиваний и возвращает новое значение
	IncrementDownload(ctx context.Context, id string) (int64, error)

	// ListApps возвращает все приложения, новые первыми
	ListApps(ctx context.Context) ([]domain.App, error)
	ListByDeveloper(ctx context.Context, developerID string) ([]domain.App, error)

	// SearchApps ищет подстроку без учета регистра в названии, описании и имени разработчика.
	// Пустой запрос означает, что поиск не выполнялся, и дает пустой результат.
	SearchApps(ctx context.Context, query string) ([]domain.App, error)

	Stats(ctx context.Context) (*Stats, error)
}

// MaintenanceUseCase определяет обслуживание хранилища
type MaintenanceUseCase interface {
	// Cleanup удаляет приложения старше maxAgeDays дней и возвращает число удаленных
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)

	// Backup делает резервную копию хранилища
	Backup(ctx context.Context) (ports.BackupHandle, error)
}
