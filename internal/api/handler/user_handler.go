package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/middleware"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

type UserHandler struct {
	userService *service.UserService
	auth        middleware.Authenticator
}

func NewUserHandler(us *service.UserService, auth middleware.Authenticator) *UserHandler {
	return &UserHandler{userService: us, auth: auth}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.JWTAuth(h.auth))
	r.With(middleware.RequireRole(model.RoleAdmin)).Get("/", h.listUsers)

	r.Route("/profile", func(profile chi.Router) {
		profile.Get("/", h.getProfile)
		profile.Patch("/", h.updateProfile)
		profile.Delete("/", h.deleteProfile)
	})
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.userService.List(r.Context(), callerFrom(r), pageFrom(r))
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Users retrieved successfully", list)
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	user, err := h.userService.Get(r.Context(), caller, caller.UserID)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Profile retrieved successfully", user)
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	caller := callerFrom(r)
	user, err := h.userService.Update(r.Context(), caller, caller.UserID, req)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	user, err := h.userService.Delete(r.Context(), caller, caller.UserID)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "User deleted successfully", user)
}
