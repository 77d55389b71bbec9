package local

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SavesAppFile(t *testing.T) {
	root := t.TempDir()
	s := New(root, 1024, logger.Discard())

	blob, err := s.Store(context.Background(), ports.BlobKindApp, "notes.apk", "application/octet-stream", strings.NewReader("apk-bytes"))
	require.NoError(t, err)

	assert.Regexp(t, `^/uploads/apps/[0-9a-f-]{36}\.apk$`, blob.URL)
	assert.Equal(t, "notes.apk", blob.OriginalName)
	assert.Equal(t, int64(len("apk-bytes")), blob.Size)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(blob.Key)))
	require.NoError(t, err)
	assert.Equal(t, "apk-bytes", string(data))
}

func TestStore_SavesImage(t *testing.T) {
	s := New(t.TempDir(), 1024, logger.Discard())

	blob, err := s.Store(context.Background(), ports.BlobKindImage, "shot.png", "image/png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/images/[0-9a-f-]{36}\.png$`, blob.URL)
}

func TestStore_RejectsWrongType(t *testing.T) {
	root := t.TempDir()
	s := New(root, 1024, logger.Discard())

	_, err := s.Store(context.Background(), ports.BlobKindApp, "readme.txt", "text/plain", strings.NewReader("hi"))
	require.ErrorIs(t, err, domain.ErrValidation)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_RejectsOversizedAndCleansUp(t *testing.T) {
	root := t.TempDir()
	s := New(root, 8, logger.Discard())

	_, err := s.Store(context.Background(), ports.BlobKindApp, "big.zip", "", strings.NewReader("0123456789"))
	require.ErrorIs(t, err, domain.ErrValidation)

	entries, err := os.ReadDir(filepath.Join(root, "apps"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_CanceledContext(t *testing.T) {
	s := New(t.TempDir(), 1024, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Store(ctx, ports.BlobKindApp, "notes.apk", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
