package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GoArmGo/AppStore/internal/adapter/storage"
	"github.com/GoArmGo/AppStore/internal/core/ports"
)

// Config — параметры подключения к MinIO или другому S3-совместимому хранилищу
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Region          string
	// PublicURL — базовый адрес, по которому клиенты скачивают объекты; по умолчанию адрес endpoint
	PublicURL string
	MaxBytes  int64
}

// Client представляет собой клиент для взаимодействия с MinIO (S3-совместимым хранилищем).
type Client struct {
	s3Client   *s3.Client
	uploader   *manager.Uploader
	bucketName string
	publicURL  string
	maxBytes   int64
	logger     *slog.Logger
}

// NewMinioClient создает клиент и при необходимости создает бакет
func NewMinioClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" || cfg.Endpoint == "" || cfg.Region == "" {
		return nil, fmt.Errorf("S3 credentials (S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_BUCKET, S3_ENDPOINT, S3_REGION) must be set in environment variables")
	}

	endpointURL := endpointURL(cfg.Endpoint, cfg.UseSSL)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for MinIO: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 16 * 1024 * 1024
		u.Concurrency = 3
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = endpointURL
	}

	c := &Client{
		s3Client:   s3Client,
		uploader:   uploader,
		bucketName: cfg.Bucket,
		publicURL:  publicURL,
		maxBytes:   cfg.MaxBytes,
		logger:     logger,
	}

	if err := c.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return c, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return strings.TrimRight(endpoint, "/")
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// ensureBucket проверяет существование бакета и создает его, если нужно
func (c *Client) ensureBucket(ctx context.Context, region string) error {
	headCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.s3Client.HeadBucket(headCtx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucketName),
	})
	if err == nil {
		c.logger.Info("bucket already exists", "bucket", c.bucketName)
		return nil
	}

	c.logger.Warn("bucket not found, creating", "bucket", c.bucketName, "error", err)

	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucketName)}
	// us-east-1 не принимает явный LocationConstraint
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	if _, createErr := c.s3Client.CreateBucket(ctx, input); createErr != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if !errors.As(createErr, &owned) {
			return fmt.Errorf("failed to create bucket '%s': %w", c.bucketName, createErr)
		}
	}

	waiter := s3.NewBucketExistsWaiter(c.s3Client)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucketName)}, 30*time.Second); err != nil {
		return fmt.Errorf("failed waiting for bucket '%s' to be created: %w", c.bucketName, err)
	}

	c.logger.Info("bucket created successfully", "bucket", c.bucketName)
	return nil
}

// Store загружает файл в бакет под новым уникальным ключом
func (c *Client) Store(ctx context.Context, kind ports.BlobKind, originalName, contentType string, r io.Reader) (*ports.StoredBlob, error) {
	ext, err := storage.Validate(kind, originalName, contentType)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.NewKey(kind, ext)
	counter := &countingReader{r: storage.LimitReader(r, c.maxBytes, storage.FieldForKind(kind))}

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        counter,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if counter.err != nil {
			return nil, fmt.Errorf("read upload %s: %w", key, counter.err)
		}
		return nil, fmt.Errorf("failed to upload file %s to bucket %s: %w", key, c.bucketName, err)
	}

	return &ports.StoredBlob{
		URL:          fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucketName, key),
		Key:          key,
		OriginalName: originalName,
		Size:         counter.n,
	}, nil
}

// countingReader считает прочитанные байты и запоминает ошибку источника,
// чтобы отличить превышение лимита от сбоя S3
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && err != io.EOF {
		c.err = err
	}
	return n, err
}
