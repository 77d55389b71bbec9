package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/apps/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/apps/{id}", "418"))

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/apps/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/apps/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestRecordStoreTransaction(t *testing.T) {
	before := testutil.ToFloat64(storeTransactions.WithLabelValues("update", "error"))
	RecordStoreTransaction("update", time.Millisecond, 2*time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(storeTransactions.WithLabelValues("update", "error"))-before)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordDownload()
	RecordMaintenance("cleanup", 2, true)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "appstore_apps_downloads_total"))
	assert.True(t, strings.Contains(string(body), "appstore_maintenance_apps_removed_total"))
}
