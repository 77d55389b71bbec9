package recordstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
)

const maxBackupAttempts = 100

// FileMedium хранит документ в одном JSON-файле.
// Запись атомарна: новый документ пишется во временный файл в том же каталоге,
// сбрасывается на диск и переименовывается поверх старого.
type FileMedium struct {
	path      string
	backupDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewFileMedium создает файловый носитель. Каталоги создаются при первой записи.
func NewFileMedium(path, backupDir string, logger *slog.Logger) *FileMedium {
	if backupDir == "" {
		backupDir = filepath.Dir(path)
	}
	return &FileMedium{
		path:      path,
		backupDir: backupDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Path возвращает путь к документу
func (m *FileMedium) Path() string {
	return m.path
}

func (m *FileMedium) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}
	return data, nil
}

// Create публикует документ, только если файла еще нет.
// Содержимое сначала полностью пишется во временный файл, затем связывается
// жесткой ссылкой с целевым именем: link не перезаписывает существующий файл.
func (m *FileMedium) Create(_ context.Context, data []byte) error {
	tmp, err := m.writeTemp(filepath.Dir(m.path), data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, m.path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ports.ErrDocumentExists
		}
		return fmt.Errorf("create %s: %w", m.path, err)
	}
	m.syncDir(filepath.Dir(m.path))
	return nil
}

func (m *FileMedium) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(m.path)
	tmp, err := m.writeTemp(dir, data)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", m.path, err)
	}
	m.syncDir(dir)
	return nil
}

// WriteBackup пишет снимок в файл backup-<unix-ms>.json. Существующие копии не перезаписываются.
func (m *FileMedium) WriteBackup(_ context.Context, data []byte) (string, error) {
	tmp, err := m.writeTemp(m.backupDir, data)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	stamp := m.now().UnixMilli()
	for attempt := 0; attempt < maxBackupAttempts; attempt++ {
		name := fmt.Sprintf("backup-%d.json", stamp)
		if attempt > 0 {
			name = fmt.Sprintf("backup-%d-%d.json", stamp, attempt)
		}
		target := filepath.Join(m.backupDir, name)

		err := os.Link(tmp, target)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create backup %s: %w", target, err)
		}
		m.syncDir(m.backupDir)
		return target, nil
	}
	return "", fmt.Errorf("create backup in %s: too many backups at %d", m.backupDir, stamp)
}

func (m *FileMedium) writeTemp(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".appstore-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	name := f.Name()

	fail := func(op string, err error) (string, error) {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("%s %s: %w", op, name, err)
	}

	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Chmod(0o644); err != nil {
		return fail("chmod", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}

// syncDir фиксирует переименование в каталоге. Файл к этому моменту уже на месте,
// поэтому ошибка только логируется.
func (m *FileMedium) syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		m.logger.Warn("failed to open directory for sync", "dir", dir, "error", err)
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		m.logger.Warn("failed to sync directory", "dir", dir, "error", err)
	}
}
