package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Драйверы хранилища записей и файлового хранилища
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"

	BlobDriverLocal = "local"
	BlobDriverS3    = "s3"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort     string        `env:"SERVER_PORT" envDefault:"3000"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	// Хранилище записей: JSON-файл или одна строка в PostgreSQL
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"file"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/database.json"`
	BackupDir    string `env:"BACKUP_DIR"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Аутентификация
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`

	// Загрузка файлов
	BlobDriver        string `env:"BLOB_DRIVER" envDefault:"local"`
	UploadDir         string `env:"UPLOAD_DIR" envDefault:"uploads"`
	UploadMaxBytes    int64  `env:"UPLOAD_MAX_BYTES" envDefault:"104857600"`
	UploadConcurrency int    `env:"UPLOAD_CONCURRENCY" envDefault:"5"`

	S3 struct {
		Endpoint        string `env:"ENDPOINT"`
		AccessKeyID     string `env:"ACCESS_KEY_ID"`
		SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
		UseSSL          bool   `env:"USE_SSL"`
		Bucket          string `env:"BUCKET" envDefault:"appstore"`
		Region          string `env:"REGION" envDefault:"us-east-1"`
		PublicURL       string `env:"PUBLIC_URL"`
	} `envPrefix:"S3_"`

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"appstore_maintenance"`
	}

	// Обслуживание хранилища
	RetentionSchedule   string `env:"RETENTION_SCHEDULE"`
	RetentionMaxAgeDays int    `env:"RETENTION_MAX_AGE_DAYS" envDefault:"30"`
	BackupSchedule      string `env:"BACKUP_SCHEDULE"`

	// Администратор, создаваемый при старте (если задан email)
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Dir(cfg.DatabasePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек выбранных драйверов
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverFile:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH must be set for store driver %q", c.StoreDriver)
		}
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (use %q or %q)", c.StoreDriver, StoreDriverFile, StoreDriverPostgres)
	}

	switch c.BlobDriver {
	case BlobDriverLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR must be set for blob driver %q", c.BlobDriver)
		}
	case BlobDriverS3:
		if c.S3.Endpoint == "" || c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" || c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("S3 settings (S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_BUCKET, S3_REGION) must be set for blob driver %q", c.BlobDriver)
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q (use %q or %q)", c.BlobDriver, BlobDriverLocal, BlobDriverS3)
	}

	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}
	if c.RetentionMaxAgeDays < 1 {
		return fmt.Errorf("RETENTION_MAX_AGE_DAYS must be at least 1, got %d", c.RetentionMaxAgeDays)
	}
	if c.UploadConcurrency < 1 {
		c.UploadConcurrency = 1
	}
	return nil
}

// IsProduction сообщает, нужно ли скрывать детали внутренних ошибок от клиентов
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
