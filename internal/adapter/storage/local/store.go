package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/GoArmGo/AppStore/internal/adapter/storage"
	"github.com/GoArmGo/AppStore/internal/core/ports"
)

// PublicPrefix — URL-префикс, под которым раздаются загруженные файлы
const PublicPrefix = "/uploads"

// Store сохраняет файлы на локальный диск в каталоги apps/ и images/
type Store struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
}

// New создает дисковое хранилище с корнем root
func New(root string, maxBytes int64, logger *slog.Logger) *Store {
	return &Store{root: root, maxBytes: maxBytes, logger: logger}
}

// Root возвращает корневой каталог, который раздается по PublicPrefix
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Store(ctx context.Context, kind ports.BlobKind, originalName, contentType string, r io.Reader) (*ports.StoredBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext, err := storage.Validate(kind, originalName, contentType)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey(kind, ext)
	target := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	// O_EXCL: существующий файл никогда не перезаписывается
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}

	n, copyErr := io.Copy(f, storage.LimitReader(r, s.maxBytes, storage.FieldForKind(kind)))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			s.logger.Warn("failed to remove partial upload", "path", target, "error", rmErr)
		}
		if copyErr != nil {
			return nil, fmt.Errorf("write %s: %w", key, copyErr)
		}
		return nil, fmt.Errorf("close %s: %w", key, closeErr)
	}

	return &ports.StoredBlob{
		URL:          path.Join(PublicPrefix, key),
		Key:          key,
		OriginalName: originalName,
		Size:         n,
	}, nil
}
