package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DefaultDocumentName — имя строки, в которой хранится документ магазина
const DefaultDocumentName = "appstore"

// DocumentStorage хранит документ хранилища записей одной JSONB-строкой в таблице documents,
// а резервные копии — строками в document_backups.
type DocumentStorage struct {
	db     *sqlx.DB
	name   string
	logger *slog.Logger
	now    func() time.Time
}

// NewDocumentStorage создает Postgres-носитель для документа с указанным именем
func NewDocumentStorage(db *sqlx.DB, name string, logger *slog.Logger) *DocumentStorage {
	if name == "" {
		name = DefaultDocumentName
	}
	return &DocumentStorage{db: db, name: name, logger: logger, now: time.Now}
}

// Read получает тело документа
func (s *DocumentStorage) Read(ctx context.Context) ([]byte, error) {
	start := time.Now()

	var body string
	err := s.db.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = $1`, s.name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("document not found", "name", s.name)
			return nil, ports.ErrNoDocument
		}
		s.logger.Error("failed to read document", "name", s.name, "error", err)
		return nil, fmt.Errorf("ошибка при чтении документа: %w", err)
	}

	s.logger.Debug("document read",
		"name", s.name,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return []byte(body), nil
}

// Create вставляет документ, только если строки с таким именем еще нет
func (s *DocumentStorage) Create(ctx context.Context, data []byte) error {
	start := time.Now()

	query := `
	INSERT INTO documents (name, body, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (name) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query, s.name, string(data), s.now().UTC())
	if err != nil {
		s.logger.Error("failed to create document", "name", s.name, "error", err)
		return fmt.Errorf("ошибка при создании документа: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при создании документа: %w", err)
	}
	if rows == 0 {
		return ports.ErrDocumentExists
	}

	s.logger.Info("document created",
		"name", s.name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Write заменяет тело документа одной командой
func (s *DocumentStorage) Write(ctx context.Context, data []byte) error {
	start := time.Now()

	query := `
	INSERT INTO documents (name, body, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.name, string(data), s.now().UTC()); err != nil {
		s.logger.Error("failed to write document", "name", s.name, "error", err)
		return fmt.Errorf("ошибка при сохранении документа: %w", err)
	}

	s.logger.Debug("document written",
		"name", s.name,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// WriteBackup сохраняет снимок документа в document_backups и возвращает его идентификатор
func (s *DocumentStorage) WriteBackup(ctx context.Context, data []byte) (string, error) {
	start := time.Now()
	id := uuid.New()

	query := `INSERT INTO document_backups (id, name, body, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, id, s.name, string(data), s.now().UTC()); err != nil {
		s.logger.Error("failed to write document backup", "name", s.name, "error", err)
		return "", fmt.Errorf("ошибка при сохранении резервной копии: %w", err)
	}

	s.logger.Info("document backup saved",
		"name", s.name,
		"backup_id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return "document_backups/" + id.String(), nil
}
