package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// AuthHandler обрабатывает регистрацию, вход и чтение профилей
type AuthHandler struct {
	base
	auth usecase.AuthUseCase
}

func NewAuthHandler(auth usecase.AuthUseCase, logger *slog.Logger, production bool) *AuthHandler {
	return &AuthHandler{base: base{logger: logger, production: production}, auth: auth}
}

type registerRequest struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Role        domain.Role `json:"role"`
	IsAnonymous bool        `json:"isAnonymous"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), usecase.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondOK(w, http.StatusCreated, "User registered successfully", envelope{
		"user":  res.User,
		"token": res.Token,
	})
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondOK(w, http.StatusOK, "Login successful", envelope{
		"user":  res.User,
		"token": res.Token,
	})
}

// GetUser обрабатывает GET /api/auth/user/{id}
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "", envelope{"user": user})
}

// Me обрабатывает GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}

	user, err := h.auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondOK(w, http.StatusOK, "", envelope{"user": user})
}
