package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// maxImages — сколько скриншотов принимается за один запрос
const maxImages = 10

// multipartMemory — часть формы, которая держится в памяти; остальное уходит во временные файлы
const multipartMemory = 32 << 20

// AppHandler обрабатывает каталог приложений
type AppHandler struct {
	base
	apps  usecase.AppUseCase
	blobs ports.BlobStore
}

func NewAppHandler(apps usecase.AppUseCase, blobs ports.BlobStore, logger *slog.Logger, production bool) *AppHandler {
	return &AppHandler{base: base{logger: logger, production: production}, apps: apps, blobs: blobs}
}

type publishRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Platforms   domain.Platforms `json:"platforms"`
	FileURL     string           `json:"fileUrl"`
	FileName    string           `json:"fileName"`
	FileSize    int64            `json:"fileSize"`
	Images      []string         `json:"images"`
	DeveloperID string           `json:"developerId"`
}

func (h *AppHandler) respondApps(w http.ResponseWriter, apps []domain.App) {
	h.respondOK(w, http.StatusOK, "", envelope{"apps": apps, "total": len(apps)})
}

// ListApps обрабатывает GET /api/apps
func (h *AppHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.ListApps(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApps(w, apps)
}

// SearchApps обрабатывает GET /api/apps/search?q=
func (h *AppHandler) SearchApps(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	h.logger.Info("search apps", "query", query)

	apps, err := h.apps.SearchApps(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApps(w, apps)
}

// ListByDeveloper обрабатывает GET /api/apps/developer/{id}
func (h *AppHandler) ListByDeveloper(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.ListByDeveloper(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApps(w, apps)
}

// MyApps обрабатывает GET /api/apps/my-apps
func (h *AppHandler) MyApps(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	apps, err := h.apps.ListByDeveloper(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApps(w, apps)
}

// GetApp обрабатывает GET /api/apps/{id}
func (h *AppHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	app, err := h.apps.GetApp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "", envelope{"app": app})
}

// PublishApp обрабатывает POST /api/apps. Принимает JSON с уже загруженными файлами
// или multipart-форму с пакетом в поле file и скриншотами в поле images.
func (h *AppHandler) PublishApp(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}

	var (
		in  usecase.PublishAppInput
		err error
	)
	if isMultipart(r) {
		in, err = h.publishFromForm(r)
	} else {
		in, err = h.publishFromJSON(r)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// публиковать от имени другого разработчика может только администратор
	if in.DeveloperID == "" || claims.Role != domain.RoleAdmin {
		in.DeveloperID = claims.UserID
	}

	app, err := h.apps.PublishApp(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondOK(w, http.StatusCreated, "App published successfully", envelope{"app": app})
}

func (h *AppHandler) publishFromJSON(r *http.Request) (usecase.PublishAppInput, error) {
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		return usecase.PublishAppInput{}, err
	}
	return usecase.PublishAppInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Platforms:   req.Platforms,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		Images:      req.Images,
		DeveloperID: req.DeveloperID,
	}, nil
}

// publishFromForm проверяет поля формы и типы файлов до первой записи в файловое хранилище
func (h *AppHandler) publishFromForm(r *http.Request) (usecase.PublishAppInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return usecase.PublishAppInput{}, domain.NewValidationError("body", "malformed multipart form: "+err.Error())
	}
	defer r.MultipartForm.RemoveAll()

	platforms, err := domain.ParsePlatforms(r.FormValue("platforms"))
	if err != nil {
		return usecase.PublishAppInput{}, domain.NewValidationError("platforms", err.Error())
	}

	in := usecase.PublishAppInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Platforms:   platforms,
		DeveloperID: r.FormValue("developerId"),
		FileURL:     r.FormValue("fileUrl"),
	}

	switch {
	case strings.TrimSpace(in.Name) == "":
		return usecase.PublishAppInput{}, domain.NewValidationError("name", "is required")
	case strings.TrimSpace(in.Description) == "":
		return usecase.PublishAppInput{}, domain.NewValidationError("description", "is required")
	}

	appFiles := r.MultipartForm.File["file"]
	if len(appFiles) == 0 && strings.TrimSpace(in.FileURL) == "" {
		return usecase.PublishAppInput{}, domain.NewValidationError("file", "please upload the application file")
	}
	images := r.MultipartForm.File["images"]
	if len(images) > maxImages {
		return usecase.PublishAppInput{}, domain.NewValidationError("images", "too many images, at most 10 are allowed")
	}

	if len(appFiles) > 0 {
		if err := checkFormFile(ports.BlobKindApp, appFiles[0]); err != nil {
			return usecase.PublishAppInput{}, err
		}
	}
	for _, fh := range images {
		if err := checkFormFile(ports.BlobKindImage, fh); err != nil {
			return usecase.PublishAppInput{}, err
		}
	}

	if len(appFiles) > 0 {
		blob, err := h.storeFile(r, ports.BlobKindApp, appFiles[0])
		if err != nil {
			return usecase.PublishAppInput{}, err
		}
		in.FileURL = blob.URL
		in.FileName = blob.OriginalName
		in.FileSize = blob.Size
	}

	in.Images = make([]string, 0, len(images))
	for _, fh := range images {
		blob, err := h.storeFile(r, ports.BlobKindImage, fh)
		if err != nil {
			return usecase.PublishAppInput{}, err
		}
		in.Images = append(in.Images, blob.URL)
	}
	return in, nil
}

func (h *AppHandler) storeFile(r *http.Request, kind ports.BlobKind, fh *multipart.FileHeader) (*ports.StoredBlob, error) {
	return storeFormFile(r, h.blobs, kind, fh)
}

// IncrementDownload обрабатывает PUT и POST /api/apps/{id}/download
func (h *AppHandler) IncrementDownload(w http.ResponseWriter, r *http.Request) {
	downloads, err := h.apps.IncrementDownload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Download counter incremented", envelope{"downloads": downloads})
}

// DownloadURL обрабатывает GET /api/apps/{id}/download-url
func (h *AppHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.apps.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "", envelope{"downloadUrl": url})
}

// Stats обрабатывает GET /api/stats
func (h *AppHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.apps.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "", envelope{
		"totalApps":       stats.TotalApps,
		"totalDevelopers": stats.TotalDevelopers,
		"totalDownloads":  stats.TotalDownloads,
		"totalUsers":      stats.TotalUsers,
	})
}
