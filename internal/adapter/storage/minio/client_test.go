package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 отвечает на HEAD бакета и PUT объекта так, как это делает MinIO
type fakeS3 struct {
	mu          sync.Mutex
	puts        []string
	contentType string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.puts = append(f.puts, r.URL.Path)
		f.contentType = r.Header.Get("Content-Type")
		f.mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestClient(t *testing.T, fake *fakeS3, maxBytes int64) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	c, err := NewMinioClient(context.Background(), Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Bucket:          "appstore",
		Region:          "us-east-1",
		PublicURL:       "http://cdn.example.com/",
		MaxBytes:        maxBytes,
	}, logger.Discard())
	require.NoError(t, err)
	return c
}

func TestClient_Store(t *testing.T) {
	fake := &fakeS3{}
	c := newTestClient(t, fake, 1024)

	blob, err := c.Store(context.Background(), ports.BlobKindApp, "notes.apk", "application/vnd.android.package-archive", strings.NewReader("apk-bytes"))
	require.NoError(t, err)

	assert.Regexp(t, `^http://cdn\.example\.com/appstore/apps/[0-9a-f-]{36}\.apk$`, blob.URL)
	assert.Equal(t, int64(len("apk-bytes")), blob.Size)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "/appstore/"+blob.Key, fake.puts[0])
	assert.Equal(t, "application/vnd.android.package-archive", fake.contentType)
}

func TestClient_StoreRejectsInvalidType(t *testing.T) {
	fake := &fakeS3{}
	c := newTestClient(t, fake, 1024)

	_, err := c.Store(context.Background(), ports.BlobKindImage, "icon.svg", "image/svg+xml", strings.NewReader("<svg/>"))
	require.ErrorIs(t, err, domain.ErrValidation)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.puts)
}

func TestClient_StoreRejectsOversized(t *testing.T) {
	c := newTestClient(t, &fakeS3{}, 4)

	_, err := c.Store(context.Background(), ports.BlobKindApp, "big.zip", "", strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewMinioClient_RequiresSettings(t *testing.T) {
	_, err := NewMinioClient(context.Background(), Config{Endpoint: "localhost:9000"}, logger.Discard())
	assert.Error(t, err)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000", true))
	assert.Equal(t, "http://127.0.0.1:1234", endpointURL("http://127.0.0.1:1234/", true))
}
