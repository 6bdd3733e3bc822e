package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/middleware"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

type AuthHandler struct {
	authService *service.AuthService
	limiter     func(http.Handler) http.Handler
}

// NewAuthHandler serves /auth. limiter guards register and login; nil disables it.
func NewAuthHandler(authService *service.AuthService, limiter func(http.Handler) http.Handler) *AuthHandler {
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &AuthHandler{authService: authService, limiter: limiter}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.With(h.limiter, middleware.OptionalAuth(h.authService)).Post("/register", h.register)
	r.With(h.limiter, middleware.LocalAuth(h.authService)).Post("/login", h.login)
	r.With(middleware.JWTAuth(h.authService)).Post("/logout", h.logout)
}

// register is open; an admin token on the request allows setting role and status.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, r, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusCreated, "User created successfully", resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	resp, err := h.authService.Login(r.Context(), user, cookieSink{w})
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, msgOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(cookieSink{w})
	common.RespondWithData(w, r, http.StatusOK, msgOK, map[string]string{"message": "Successfully logged out"})
}
