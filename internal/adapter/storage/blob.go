package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/metrics"
	"github.com/google/uuid"
)

// Допустимые расширения пакетов приложений
var appExtensions = map[string]struct{}{
	".apk":      {},
	".ipa":      {},
	".exe":      {},
	".dmg":      {},
	".deb":      {},
	".appimage": {},
	".zip":      {},
}

// Допустимые типы изображений и расширение по умолчанию для каждого
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// FieldForKind возвращает имя поля формы, в котором приходит файл данного вида
func FieldForKind(kind ports.BlobKind) string {
	if kind == ports.BlobKindImage {
		return "images"
	}
	return "appFile"
}

// Validate проверяет, что файл допустимого вида, и возвращает расширение для его ключа
func Validate(kind ports.BlobKind, originalName, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))

	switch kind {
	case ports.BlobKindApp:
		if _, ok := appExtensions[ext]; !ok {
			return "", domain.NewValidationError(FieldForKind(kind), "invalid file type, allowed: .apk, .ipa, .exe, .dmg, .deb, .appimage, .zip")
		}
		return ext, nil

	case ports.BlobKindImage:
		mediaType := ""
		if contentType != "" {
			if mt, _, err := mime.ParseMediaType(contentType); err == nil {
				mediaType = strings.ToLower(mt)
			}
		}
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = imageExtensions[ext]
		}
		defaultExt, ok := imageTypes[mediaType]
		if !ok {
			return "", domain.NewValidationError(FieldForKind(kind), "only image files are allowed (jpeg, png, gif, webp)")
		}
		if imageExtensions[ext] == mediaType {
			return ext, nil
		}
		return defaultExt, nil
	}

	return "", fmt.Errorf("unknown blob kind %q", kind)
}

// NewKey генерирует уникальный ключ вида apps/<uuid>.apk или images/<uuid>.png
func NewKey(kind ports.BlobKind, ext string) string {
	dir := "apps"
	if kind == ports.BlobKindImage {
		dir = "images"
	}
	return path.Join(dir, uuid.NewString()+ext)
}

// LimitReader возвращает ошибку валидации, как только из r прочитано больше limit байт.
// Неположительный limit отключает проверку.
func LimitReader(r io.Reader, limit int64, field string) io.Reader {
	if limit <= 0 {
		return r
	}
	return &limitedReader{r: r, limit: limit, field: field}
}

type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
	field string
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, domain.NewValidationError(l.field, fmt.Sprintf("file is too large, limit is %d bytes", l.limit))
	}
	return n, err
}

// Limited ограничивает число одновременных загрузок и учитывает их в метриках
type Limited struct {
	next   ports.BlobStore
	slots  chan struct{}
	logger *slog.Logger
}

// NewLimited оборачивает хранилище семафором на n одновременных загрузок
func NewLimited(next ports.BlobStore, n int, logger *slog.Logger) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{next: next, slots: make(chan struct{}, n), logger: logger}
}

func (l *Limited) Store(ctx context.Context, kind ports.BlobKind, originalName, contentType string, r io.Reader) (*ports.StoredBlob, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.slots }()

	start := time.Now()
	blob, err := l.next.Store(ctx, kind, originalName, contentType, r)

	var size int64
	if blob != nil {
		size = blob.Size
	}
	metrics.RecordUpload(string(kind), size, err)

	if err != nil {
		l.logger.Warn("blob upload failed",
			"kind", kind,
			"original_name", originalName,
			"error", err,
		)
		return nil, err
	}

	l.logger.Info("blob stored",
		"kind", kind,
		"key", blob.Key,
		"size", blob.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return blob, nil
}
