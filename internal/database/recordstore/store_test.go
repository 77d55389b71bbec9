package recordstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *FileMedium) {
	t.Helper()
	dir := t.TempDir()
	medium := NewFileMedium(filepath.Join(dir, "database", "database.json"), filepath.Join(dir, "backups"), logger.Discard())
	return New(medium, logger.Discard()), medium
}

// failingMedium позволяет подменить отдельные операции носителя
type failingMedium struct {
	data     []byte
	readErr  error
	writeErr error
	writes   int
}

func (m *failingMedium) Read(context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, ports.ErrNoDocument
	}
	return m.data, nil
}

func (m *failingMedium) Create(_ context.Context, data []byte) error {
	if m.data != nil {
		return ports.ErrDocumentExists
	}
	m.data = data
	return nil
}

func (m *failingMedium) Write(_ context.Context, data []byte) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = data
	return nil
}

func (m *failingMedium) WriteBackup(context.Context, []byte) (string, error) {
	return "", errors.New("backups disabled")
}

func TestStore_LoadCreatesEmptyDocument(t *testing.T) {
	store, medium := newTestStore(t)
	ctx := context.Background()

	db, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, db.Users)
	assert.Empty(t, db.Apps)
	assert.NotNil(t, db.Users)
	assert.NotNil(t, db.Apps)

	raw, err := os.ReadFile(medium.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":[],"apps":[]}`, string(raw))

	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, db, again)
}

func TestStore_ConcurrentFirstLoad(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Load(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	db := domain.NewDatabase()
	db.Users = append(db.Users, domain.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", Role: domain.RoleDeveloper, CreatedAt: now, UpdatedAt: now})
	db.Apps = append(db.Apps, domain.App{ID: "a1", Name: "Notes", Description: "Take notes", Platforms: domain.NewPlatforms("android"), FileURL: "/uploads/apps/x.apk", DeveloperID: "u1", DeveloperName: "Ann", Downloads: 3, CreatedAt: now, UpdatedAt: now})

	require.NoError(t, store.Save(ctx, db))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, db, loaded)
}

func TestStore_CorruptDocumentIsNotReplaced(t *testing.T) {
	store, medium := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(medium.Path()), 0o755))
	require.NoError(t, os.WriteFile(medium.Path(), []byte(`{"users": [`), 0o644))

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)

	raw, err := os.ReadFile(medium.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"users": [`, string(raw))
}

func TestStore_SaveFailureKeepsPreviousContent(t *testing.T) {
	medium := &failingMedium{}
	store := New(medium, logger.Discard())
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.NoError(t, err)
	before := medium.data

	medium.writeErr = errors.New("disk full")
	db := domain.NewDatabase()
	db.Users = append(db.Users, domain.User{ID: "u1", Name: "Ann"})

	err = store.Save(ctx, db)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, before, medium.data)
}

func TestStore_LoadReadFailure(t *testing.T) {
	store := New(&failingMedium{readErr: errors.New("permission denied")}, logger.Discard())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestStore_UpdateSavesOnlyWhenChanged(t *testing.T) {
	medium := &failingMedium{}
	store := New(medium, logger.Discard())
	ctx := context.Background()

	err := store.Update(ctx, func(context.Context, *domain.Database) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, medium.writes)

	sentinel := errors.New("rejected")
	err = store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		db.Users = append(db.Users, domain.User{ID: "u1"})
		return true, sentinel
	})
	assert.Same(t, sentinel, err)
	assert.Equal(t, 0, medium.writes)

	err = store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		db.Users = append(db.Users, domain.User{ID: "u1", Name: "Ann"})
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, medium.writes)

	err = store.View(ctx, func(_ context.Context, db *domain.Database) error {
		require.Len(t, db.Users, 1)
		assert.Equal(t, "Ann", db.Users[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_BackupWritesIndependentSnapshot(t *testing.T) {
	store, medium := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		db.Users = append(db.Users, domain.User{ID: "u1", Name: "Ann"})
		return true, nil
	})
	require.NoError(t, err)

	primary, err := os.ReadFile(medium.Path())
	require.NoError(t, err)

	first, err := store.Backup(ctx)
	require.NoError(t, err)
	second, err := store.Backup(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Location, second.Location)

	snapshot, err := os.ReadFile(first.Location)
	require.NoError(t, err)
	assert.JSONEq(t, string(primary), string(snapshot))
	assert.Regexp(t, `backup-\d+(-\d+)?\.json$`, first.Location)

	after, err := os.ReadFile(medium.Path())
	require.NoError(t, err)
	assert.Equal(t, primary, after)
}

func TestStore_BackupFailureIsReported(t *testing.T) {
	store := New(&failingMedium{}, logger.Discard())

	_, err := store.Backup(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestFileMedium_CreateIsExclusive(t *testing.T) {
	medium := NewFileMedium(filepath.Join(t.TempDir(), "db.json"), "", logger.Discard())
	ctx := context.Background()

	require.NoError(t, medium.Create(ctx, []byte(`{"users":[],"apps":[]}`)))
	err := medium.Create(ctx, []byte(`{"users":[{"id":"x"}],"apps":[]}`))
	require.ErrorIs(t, err, ports.ErrDocumentExists)

	data, err := medium.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":[],"apps":[]}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(medium.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestFileMedium_ReadMissing(t *testing.T) {
	medium := NewFileMedium(filepath.Join(t.TempDir(), "missing.json"), "", logger.Discard())

	_, err := medium.Read(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoDocument)
}
