package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// AdminHandler — ручной запуск обслуживания хранилища
type AdminHandler struct {
	base
	maintenance usecase.MaintenanceUseCase
	defaultDays int
}

func NewAdminHandler(maintenance usecase.MaintenanceUseCase, defaultDays int, logger *slog.Logger, production bool) *AdminHandler {
	return &AdminHandler{
		base:        base{logger: logger, production: production},
		maintenance: maintenance,
		defaultDays: defaultDays,
	}
}

// Cleanup обрабатывает POST /api/admin/cleanup?days=N
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := h.defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, domain.NewValidationError("days", "must be an integer"))
			return
		}
		days = n
	}

	removed, err := h.maintenance.Cleanup(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondOK(w, http.StatusOK, "Cleanup completed", envelope{"removed": removed})
}

// Backup обрабатывает POST /api/admin/backup
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.maintenance.Backup(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "Backup created", envelope{"backup": backup})
}
