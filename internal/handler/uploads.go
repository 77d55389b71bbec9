package handler

import (
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	blobstorage "github.com/GoArmGo/AppStore/internal/adapter/storage"
	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
)

// UploadHandler принимает файлы приложений и скриншоты отдельно от публикации
type UploadHandler struct {
	base
	blobs ports.BlobStore
}

func NewUploadHandler(blobs ports.BlobStore, logger *slog.Logger, production bool) *UploadHandler {
	return &UploadHandler{base: base{logger: logger, production: production}, blobs: blobs}
}

// UploadApp обрабатывает POST /api/upload/app (поле appFile)
func (h *UploadHandler) UploadApp(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["appFile"]
	if len(files) == 0 {
		h.fail(w, r, domain.NewValidationError("appFile", "no file uploaded"))
		return
	}

	blob, err := storeFormFile(r, h.blobs, ports.BlobKindApp, files[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondOK(w, http.StatusOK, "File uploaded successfully", envelope{
		"url":      blob.URL,
		"fileName": blob.OriginalName,
		"fileSize": blob.Size,
	})
}

// UploadImages обрабатывает POST /api/upload/images (поле images, до 10 файлов)
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		h.fail(w, r, domain.NewValidationError("images", "no images uploaded"))
		return
	}
	if len(files) > maxImages {
		h.fail(w, r, domain.NewValidationError("images", "too many images, at most 10 are allowed"))
		return
	}

	for _, fh := range files {
		if err := checkFormFile(ports.BlobKindImage, fh); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		blob, err := storeFormFile(r, h.blobs, ports.BlobKindImage, fh)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		urls = append(urls, blob.URL)
	}

	h.respondOK(w, http.StatusOK, "Images uploaded successfully", envelope{
		"imageUrls": urls,
		"total":     len(urls),
	})
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func parseForm(r *http.Request) error {
	if !isMultipart(r) {
		return domain.NewValidationError("body", "multipart/form-data expected")
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return domain.NewValidationError("body", "malformed multipart form: "+err.Error())
	}
	return nil
}

// checkFormFile проверяет тип файла формы, ничего не записывая
func checkFormFile(kind ports.BlobKind, fh *multipart.FileHeader) error {
	_, err := blobstorage.Validate(kind, fh.Filename, fh.Header.Get("Content-Type"))
	return err
}

// storeFormFile передает файл формы в файловое хранилище потоком
func storeFormFile(r *http.Request, blobs ports.BlobStore, kind ports.BlobKind, fh *multipart.FileHeader) (*ports.StoredBlob, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file %q: %w", fh.Filename, err)
	}
	defer f.Close()

	return blobs.Store(r.Context(), kind, fh.Filename, fh.Header.Get("Content-Type"), f)
}
