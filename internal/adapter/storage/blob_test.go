package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		kind        ports.BlobKind
		file        string
		contentType string
		wantExt     string
		wantErr     bool
	}{
		{"apk", ports.BlobKindApp, "notes.apk", "application/vnd.android.package-archive", ".apk", false},
		{"appimage upper case", ports.BlobKindApp, "Notes.AppImage", "", ".appimage", false},
		{"app with bad extension", ports.BlobKindApp, "notes.txt", "text/plain", "", true},
		{"app without extension", ports.BlobKindApp, "notes", "", "", true},
		{"png", ports.BlobKindImage, "shot.png", "image/png", ".png", false},
		{"jpeg keeps extension", ports.BlobKindImage, "shot.jpeg", "image/jpeg", ".jpeg", false},
		{"mime wins over extension", ports.BlobKindImage, "shot.bin", "image/webp", ".webp", false},
		{"extension fallback", ports.BlobKindImage, "shot.gif", "application/octet-stream", ".gif", false},
		{"svg rejected", ports.BlobKindImage, "icon.svg", "image/svg+xml", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := Validate(tc.kind, tc.file, tc.contentType)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExt, ext)
		})
	}
}

func TestNewKey(t *testing.T) {
	a := NewKey(ports.BlobKindApp, ".apk")
	b := NewKey(ports.BlobKindApp, ".apk")

	assert.Regexp(t, `^apps/[0-9a-f-]{36}\.apk$`, a)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(NewKey(ports.BlobKindImage, ".png"), "images/"))
}

func TestLimitReader(t *testing.T) {
	_, err := io.ReadAll(LimitReader(bytes.NewReader(make([]byte, 10)), 10, "appFile"))
	require.NoError(t, err)

	_, err = io.ReadAll(LimitReader(bytes.NewReader(make([]byte, 11)), 10, "appFile"))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "appFile", verr.Field)
}

type slowStore struct {
	inFlight, maxInFlight int32
}

func (s *slowStore) Store(_ context.Context, _ ports.BlobKind, name, _ string, r io.Reader) (*ports.StoredBlob, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxInFlight, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	data, _ := io.ReadAll(r)
	return &ports.StoredBlob{Key: name, Size: int64(len(data))}, nil
}

func TestLimited_BoundsConcurrency(t *testing.T) {
	inner := &slowStore{}
	store := NewLimited(inner, 2, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Store(context.Background(), ports.BlobKindApp, "a.apk", "", strings.NewReader("data"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.maxInFlight, int32(2))
}

func TestLimited_CanceledWhileWaiting(t *testing.T) {
	store := NewLimited(&slowStore{}, 1, logger.Discard())
	store.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := store.Store(ctx, ports.BlobKindApp, "a.apk", "", strings.NewReader("data"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
