package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/metrics"
)

var _ ports.RecordStore = (*Store)(nil)

// Store — хранилище записей: весь набор пользователей и приложений
// хранится одним документом и целиком читается и записывается через RecordMedium.
type Store struct {
	medium ports.RecordMedium
	guard  *Guard
	logger *slog.Logger
	now    func() time.Time
}

// New создает хранилище поверх носителя
func New(medium ports.RecordMedium, logger *slog.Logger) *Store {
	return &Store{
		medium: medium,
		guard:  NewGuard(),
		logger: logger,
		now:    time.Now,
	}
}

// Guard возвращает защиту, которой сериализуются транзакции этого хранилища
func (s *Store) Guard() *Guard {
	return s.guard
}

// Load читает документ с носителя. Если документа еще нет, создает пустой
// и возвращает его. Испорченный документ не заменяется пустым: Load вернет
// ErrStorageUnavailable, и данные останутся на носителе для разбора.
func (s *Store) Load(ctx context.Context) (*domain.Database, error) {
	start := time.Now()

	data, err := s.medium.Read(ctx)
	if errors.Is(err, ports.ErrNoDocument) {
		db, created, createErr := s.create(ctx)
		if createErr != nil {
			return nil, createErr
		}
		if created {
			s.logger.Info("record store initialized",
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return db, nil
		}
		// документ успел создать кто-то другой
		data, err = s.medium.Read(ctx)
	}
	if err != nil {
		s.logger.Error("failed to read record store", "error", err)
		return nil, unavailable("ошибка чтения хранилища", err)
	}

	db, err := decode(data)
	if err != nil {
		s.logger.Error("record store document is corrupt", "bytes", len(data), "error", err)
		return nil, unavailable("ошибка разбора документа хранилища", err)
	}

	s.logger.Debug("record store loaded",
		"users", len(db.Users),
		"apps", len(db.Apps),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return db, nil
}

func (s *Store) create(ctx context.Context) (*domain.Database, bool, error) {
	db := domain.NewDatabase()
	data, err := encode(db)
	if err != nil {
		return nil, false, unavailable("ошибка сериализации документа хранилища", err)
	}

	err = s.medium.Create(ctx, data)
	switch {
	case err == nil:
		return db, true, nil
	case errors.Is(err, ports.ErrDocumentExists):
		return nil, false, nil
	default:
		s.logger.Error("failed to create record store document", "error", err)
		return nil, false, unavailable("ошибка создания документа хранилища", err)
	}
}

// Save целиком заменяет документ на носителе. При ошибке прежнее содержимое остается нетронутым.
func (s *Store) Save(ctx context.Context, db *domain.Database) error {
	start := time.Now()

	db.Normalize()
	data, err := encode(db)
	if err != nil {
		return unavailable("ошибка сериализации документа хранилища", err)
	}

	if err := s.medium.Write(ctx, data); err != nil {
		s.logger.Error("failed to save record store", "error", err)
		return unavailable("ошибка записи хранилища", err)
	}

	s.logger.Debug("record store saved",
		"users", len(db.Users),
		"apps", len(db.Apps),
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Backup делает снимок текущего документа под защитой Guard
func (s *Store) Backup(ctx context.Context) (ports.BackupHandle, error) {
	var handle ports.BackupHandle
	err := s.View(ctx, func(ctx context.Context, db *domain.Database) error {
		var err error
		handle, err = s.BackupSnapshot(ctx, db)
		return err
	})
	return handle, err
}

// BackupSnapshot записывает переданный снимок как независимую резервную копию.
// Основной документ не изменяется. Вызывается внутри транзакции.
func (s *Store) BackupSnapshot(ctx context.Context, db *domain.Database) (ports.BackupHandle, error) {
	start := time.Now()

	data, err := encode(db)
	if err != nil {
		return ports.BackupHandle{}, unavailable("ошибка сериализации резервной копии", err)
	}

	location, err := s.medium.WriteBackup(ctx, data)
	if err != nil {
		s.logger.Error("failed to write backup", "error", err)
		return ports.BackupHandle{}, unavailable("ошибка записи резервной копии", err)
	}

	s.logger.Info("backup created",
		"location", location,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ports.BackupHandle{Location: location, CreatedAt: s.now().UTC()}, nil
}

// View выполняет fn над актуальным снимком под защитой Guard. Изменения снимка не сохраняются.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, db *domain.Database) error) error {
	return s.transact(ctx, "view", func(ctx context.Context) error {
		db, err := s.Load(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, db)
	})
}

// Update выполняет транзакцию чтение-изменение-запись. Документ сохраняется,
// только если fn вернула changed=true и не вернула ошибку.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, db *domain.Database) (bool, error)) error {
	return s.transact(ctx, "update", func(ctx context.Context) error {
		db, err := s.Load(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(ctx, db)
		if err != nil || !changed {
			return err
		}
		return s.Save(ctx, db)
	})
}

func (s *Store) transact(ctx context.Context, kind string, work func(ctx context.Context) error) (err error) {
	start := time.Now()
	var acquired time.Time

	defer func() {
		wait := time.Since(start)
		if !acquired.IsZero() {
			wait = acquired.Sub(start)
		}
		metrics.RecordStoreTransaction(kind, wait, time.Since(start), err)
	}()

	return s.guard.Do(ctx, func(ctx context.Context) error {
		acquired = time.Now()
		return work(ctx)
	})
}

func encode(db *domain.Database) ([]byte, error) {
	db.Normalize()
	return json.MarshalIndent(db, "", "  ")
}

func decode(data []byte) (*domain.Database, error) {
	var db domain.Database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, err
	}
	db.Normalize()
	return &db, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorageUnavailable, err))
}
