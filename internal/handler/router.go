package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/metrics"
)

// Handlers — набор обработчиков, из которых собирается роутер
type Handlers struct {
	Auth          *AuthHandler
	Apps          *AppHandler
	Uploads       *UploadHandler
	Admin         *AdminHandler
	Authenticator *Authenticator
	RateLimiter   *RateLimiter
}

// RouterOptions — параметры роутера, не относящиеся к обработчикам
type RouterOptions struct {
	RequestTimeout time.Duration
	// UploadDir раздается по /uploads/*, если задан (локальное файловое хранилище)
	UploadDir string
}

// NewRouter собирает chi-роутер со всеми маршрутами API
func NewRouter(h Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, envelope{"success": true, "status": "ok"}, logger)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir))))
	}

	auth := h.Authenticator

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.RateLimiter != nil {
					r.Use(h.RateLimiter.Handler)
				}
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
			})
			r.Get("/user/{id}", h.Auth.GetUser)
			r.With(auth.RequireAuth).Get("/me", h.Auth.Me)
		})

		r.Route("/apps", func(r chi.Router) {
			r.Get("/", h.Apps.ListApps)
			r.Get("/search", h.Apps.SearchApps)
			r.Get("/developer/{id}", h.Apps.ListByDeveloper)
			r.With(auth.RequireAuth).Get("/my-apps", h.Apps.MyApps)
			r.With(auth.RequireAuth).Post("/", h.Apps.PublishApp)
			r.Get("/{id}", h.Apps.GetApp)
			r.Put("/{id}/download", h.Apps.IncrementDownload)
			r.Post("/{id}/download", h.Apps.IncrementDownload)
			r.Get("/{id}/download-url", h.Apps.DownloadURL)
		})

		r.Route("/upload", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Post("/app", h.Uploads.UploadApp)
			r.Post("/images", h.Uploads.UploadImages)
		})

		r.Get("/stats", h.Apps.Stats)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(auth.RequireRole(domain.RoleAdmin))
			r.Post("/cleanup", h.Admin.Cleanup)
			r.Post("/backup", h.Admin.Backup)
		})
	})

	return r
}
