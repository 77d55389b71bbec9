package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry хранит коллекторы приложения
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	storeTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "store",
			Name:      "transactions_total",
			Help:      "Total number of record store transactions.",
		},
		[]string{"kind", "result"},
	)

	storeWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "appstore",
			Subsystem: "store",
			Name:      "guard_wait_seconds",
			Help:      "Time spent waiting for exclusive access to the record store.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appstore",
			Subsystem: "store",
			Name:      "transaction_duration_seconds",
			Help:      "Duration of record store transactions, including waiting.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"kind"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "blob",
			Name:      "uploads_total",
			Help:      "Total number of stored blobs.",
		},
		[]string{"kind", "result"},
	)

	uploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "blob",
			Name:      "uploaded_bytes_total",
			Help:      "Total number of bytes stored.",
		},
		[]string{"kind"},
	)

	maintenanceRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "maintenance",
			Name:      "job_runs_total",
			Help:      "Total number of maintenance job runs.",
		},
		[]string{"job", "success"},
	)

	maintenanceRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "maintenance",
			Name:      "apps_removed_total",
			Help:      "Total number of apps removed by retention sweeps.",
		},
	)

	downloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appstore",
			Subsystem: "apps",
			Name:      "downloads_total",
			Help:      "Total number of recorded app downloads.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		storeTransactions,
		storeWait,
		storeDuration,
		uploads,
		uploadBytes,
		maintenanceRuns,
		maintenanceRemoved,
		downloads,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler оборачивает обработчик сбором HTTP метрик.
// Метка маршрута берется из шаблона chi, чтобы идентификаторы не раздували кардинальность.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordStoreTransaction учитывает транзакцию хранилища записей
func RecordStoreTransaction(kind string, wait, total time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeTransactions.WithLabelValues(kind, result).Inc()
	storeWait.Observe(wait.Seconds())
	storeDuration.WithLabelValues(kind).Observe(total.Seconds())
}

// RecordUpload учитывает сохранение файла
func RecordUpload(kind string, size int64, err error) {
	if err != nil {
		uploads.WithLabelValues(kind, "error").Inc()
		return
	}
	uploads.WithLabelValues(kind, "ok").Inc()
	uploadBytes.WithLabelValues(kind).Add(float64(size))
}

// RecordMaintenance учитывает запуск задачи обслуживания
func RecordMaintenance(job string, removed int, success bool) {
	if job == "" {
		job = "unknown"
	}
	maintenanceRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	if removed > 0 {
		maintenanceRemoved.Add(float64(removed))
	}
}

// RecordDownload учитывает скачивание приложения
func RecordDownload() {
	downloads.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
