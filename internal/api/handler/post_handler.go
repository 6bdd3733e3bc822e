package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/middleware"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// PostHandler serves /posts through a PostGateway, which is either the local
// service or the queue-backed client.
type PostHandler struct {
	posts service.PostGateway
	auth  middleware.Authenticator
}

func NewPostHandler(posts service.PostGateway, auth middleware.Authenticator) *PostHandler {
	return &PostHandler{posts: posts, auth: auth}
}

func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.JWTAuth(h.auth))
	r.Post("/", h.createPost)
	r.Get("/", h.listPosts)
	r.Get("/{id}", h.getPost)
	r.Patch("/{id}", h.updatePost)
	r.Delete("/{id}", h.deletePost)
}

func (h *PostHandler) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	post, err := h.posts.Create(r.Context(), callerFrom(r), req)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusCreated, "Post created successfully", post)
}

func (h *PostHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.List(r.Context(), callerFrom(r), pageFrom(r))
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Posts retrieved successfully", list)
}

func (h *PostHandler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Post retrieved successfully", post)
}

func (h *PostHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	post, err := h.posts.Update(r.Context(), callerFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Post updated successfully", post)
}

func (h *PostHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Delete(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, r, err)
		return
	}
	common.RespondWithData(w, r, http.StatusOK, "Post deleted successfully", post)
}
