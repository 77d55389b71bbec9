package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/AppStore/internal/domain"
)

// envelope — тело JSON-ответа: всегда есть success и, как правило, message
type envelope map[string]any

// base — общая часть обработчиков: логгер и режим выдачи ошибок
type base struct {
	logger     *slog.Logger
	production bool
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой. detail уходит клиенту только вне production.
func (b *base) respondWithError(w http.ResponseWriter, code int, message string, detail error) {
	body := envelope{"success": false, "message": message}
	if detail != nil && !b.production {
		body["error"] = detail.Error()
	}
	respondWithJSON(w, code, body, b.logger)
}

func (b *base) respondOK(w http.ResponseWriter, code int, message string, fields envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	respondWithJSON(w, code, body, b.logger)
}

// fail сопоставляет ошибку доменной таксономии с HTTP-статусом
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, message := classify(err)

	if code >= http.StatusInternalServerError {
		b.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"error", err,
		)
	} else {
		b.logger.Debug("request rejected", "path", r.URL.Path, "status", code, "error", err)
	}

	b.respondWithError(w, code, message, err)
}

func classify(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, "email is already registered"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "server is busy, try again later"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusInternalServerError, "storage is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON читает тело запроса в dst; неизвестные поля допускаются
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.NewValidationError("body", "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}
