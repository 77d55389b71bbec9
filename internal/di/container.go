package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/AppStore/internal/adapter/security"
	blobstorage "github.com/GoArmGo/AppStore/internal/adapter/storage"
	"github.com/GoArmGo/AppStore/internal/adapter/storage/local"
	"github.com/GoArmGo/AppStore/internal/adapter/storage/minio"
	"github.com/GoArmGo/AppStore/internal/app"
	"github.com/GoArmGo/AppStore/internal/config"
	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/database/client"
	"github.com/GoArmGo/AppStore/internal/database/recordstore"
	"github.com/GoArmGo/AppStore/internal/database/storage"
	"github.com/GoArmGo/AppStore/internal/handler"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/GoArmGo/AppStore/internal/rabbitmq"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
// В режиме enqueue поднимается только RabbitMQ.
func BuildApp(ctx context.Context, mode string) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	var deps app.Deps
	closeAll := func() {
		for i := len(deps.Closers) - 1; i >= 0; i-- {
			_ = deps.Closers[i]()
		}
	}

	// 2. RabbitMQ (необязателен для сервера, обязателен для enqueue)
	if cfg.RabbitMQ.RabbitMQURL != "" {
		rabbitMQClient, err := rabbitmq.NewClient(cfg.RabbitMQ.RabbitMQURL, cfg.RabbitMQ.RabbitMQQueueName, slogger)
		if err != nil {
			return nil, err
		}
		deps.Closers = append(deps.Closers, func() error { rabbitMQClient.Close(); return nil })
		deps.Publisher = rabbitMQClient
		deps.Consumer = rabbitMQClient
	}

	if mode == app.ModeEnqueue {
		return app.NewApp(cfg, slogger, deps), nil
	}

	// 3. Хранилище записей
	medium, err := buildRecordMedium(cfg, slogger, &deps)
	if err != nil {
		closeAll()
		return nil, err
	}
	store := recordstore.New(medium, slogger)

	// 4. Файловое хранилище
	blobs, uploadDir, err := buildBlobStore(ctx, cfg, slogger)
	if err != nil {
		closeAll()
		return nil, err
	}

	// 5. Безопасность и бизнес-логика (usecases)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	tokens := security.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	authUseCase := usecase.NewAuthUseCase(store, hasher, tokens, slogger)
	appUseCase := usecase.NewAppUseCase(store, cfg.PublicBaseURL, slogger)
	maintenanceUseCase := usecase.NewMaintenanceUseCase(store, slogger)

	if cfg.AdminEmail != "" {
		admin, err := authUseCase.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("bootstrap admin account: %w", err)
		}
		slogger.Info("admin account ready", "user_id", admin.ID, "email", admin.Email)
	}

	// 6. HTTP
	production := cfg.IsProduction()
	rateLimiter := handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, slogger)

	deps.Router = handler.NewRouter(handler.Handlers{
		Auth:          handler.NewAuthHandler(authUseCase, slogger, production),
		Apps:          handler.NewAppHandler(appUseCase, blobs, slogger, production),
		Uploads:       handler.NewUploadHandler(blobs, slogger, production),
		Admin:         handler.NewAdminHandler(maintenanceUseCase, cfg.RetentionMaxAgeDays, slogger, production),
		Authenticator: handler.NewAuthenticator(tokens, slogger, production),
		RateLimiter:   rateLimiter,
	}, handler.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
		UploadDir:      uploadDir,
	}, slogger)
	deps.RateLimiter = rateLimiter
	deps.Maintenance = maintenanceUseCase

	slogger.Info("all dependencies initialized",
		"store_driver", cfg.StoreDriver,
		"blob_driver", cfg.BlobDriver,
		"rabbitmq", deps.Consumer != nil,
	)
	return app.NewApp(cfg, slogger, deps), nil
}

func buildRecordMedium(cfg *config.Config, logger *slog.Logger, deps *app.Deps) (ports.RecordMedium, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dbClient, err := client.NewClient(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		deps.Closers = append(deps.Closers, dbClient.Close)
		return storage.NewDocumentStorage(dbClient.DB, storage.DefaultDocumentName, logger), nil
	default:
		medium := recordstore.NewFileMedium(cfg.DatabasePath, cfg.BackupDir, logger)
		logger.Info("using file record store", "path", medium.Path(), "backup_dir", cfg.BackupDir)
		return medium, nil
	}
}

// buildBlobStore возвращает хранилище и каталог для раздачи /uploads (пустой для S3)
func buildBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.BlobStore, string, error) {
	var (
		next      ports.BlobStore
		uploadDir string
	)

	switch cfg.BlobDriver {
	case config.BlobDriverS3:
		s3Store, err := minio.NewMinioClient(ctx, minio.Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			PublicURL:       cfg.S3.PublicURL,
			MaxBytes:        cfg.UploadMaxBytes,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		next = s3Store
	default:
		localStore := local.New(cfg.UploadDir, cfg.UploadMaxBytes, logger)
		next = localStore
		uploadDir = localStore.Root()
	}

	return blobstorage.NewLimited(next, cfg.UploadConcurrency, logger), uploadDir, nil
}
