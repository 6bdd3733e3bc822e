package rpc

import (
	"context"
	"encoding/json"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/worker"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

// Handlers answers the user and post patterns with the same services the HTTP API uses.
type Handlers struct {
	Auth  *service.AuthService
	Users *service.UserService
	// Posts must be the local service; a queue-backed gateway here would call itself.
	Posts *service.PostService
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, common.InvalidInput("Invalid request payload", nil)
	}
	return v, nil
}

func caller(ctx context.Context) service.Caller {
	c, _ := service.CallerFromContext(ctx)
	return c
}

// RegisterUsers installs the user patterns on w.
func (h Handlers) RegisterUsers(w *worker.MessageWorker) {
	guard := NewGuard(h.Auth)
	w.Handle(PatternCreateUser, guard.Optional(h.createUser))
	w.Handle(PatternValidateUser, h.validateUser)
	w.Handle(PatternGetUsers, guard.Require(h.getUsers))
	w.Handle(PatternGetUser, guard.Require(h.getUser))
	w.Handle(PatternUpdateUser, guard.Require(h.updateUser))
	w.Handle(PatternDeleteUser, guard.Require(h.deleteUser))
}

// RegisterPosts installs the post patterns on w.
func (h Handlers) RegisterPosts(w *worker.MessageWorker) {
	guard := NewGuard(h.Auth)
	w.Handle(PatternCreatePost, guard.Require(h.createPost))
	w.Handle(PatternGetPosts, guard.Require(h.getPosts))
	w.Handle(PatternGetPost, guard.Require(h.getPost))
	w.Handle(PatternUpdatePost, guard.Require(h.updatePost))
	w.Handle(PatternDeletePost, guard.Require(h.deletePost))
}

func (h Handlers) createUser(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[CreateUserMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Auth.Register(ctx, msg.RegisterRequest)
}

func (h Handlers) validateUser(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[ValidateUserMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Auth.ValidateCredentials(ctx, msg.Email, msg.Password)
}

func (h Handlers) getUsers(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[PageMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Users.List(ctx, caller(ctx), model.Page{Number: msg.Page, Size: msg.PageSize})
}

// target is the addressed user, defaulting to the caller.
func target(c service.Caller, id string) string {
	if id == "" {
		return c.UserID
	}
	return id
}

func (h Handlers) getUser(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[ByIDMessage](data)
	if err != nil {
		return nil, err
	}
	c := caller(ctx)
	return h.Users.Get(ctx, c, target(c, msg.ID))
}

func (h Handlers) updateUser(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[UpdateUserMessage](data)
	if err != nil {
		return nil, err
	}
	c := caller(ctx)
	return h.Users.Update(ctx, c, target(c, msg.ID), msg.UpdateUserRequest)
}

func (h Handlers) deleteUser(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[ByIDMessage](data)
	if err != nil {
		return nil, err
	}
	c := caller(ctx)
	return h.Users.Delete(ctx, c, target(c, msg.ID))
}

func (h Handlers) createPost(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[CreatePostMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Posts.Create(ctx, caller(ctx), msg.CreatePostRequest)
}

func (h Handlers) getPosts(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[PageMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Posts.List(ctx, caller(ctx), model.Page{Number: msg.Page, Size: msg.PageSize})
}

func (h Handlers) getPost(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[ByIDMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Posts.Get(ctx, caller(ctx), msg.ID)
}

func (h Handlers) updatePost(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[UpdatePostMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Posts.Update(ctx, caller(ctx), msg.ID, msg.UpdatePostRequest)
}

func (h Handlers) deletePost(ctx context.Context, data json.RawMessage) (any, error) {
	msg, err := decode[ByIDMessage](data)
	if err != nil {
		return nil, err
	}
	return h.Posts.Delete(ctx, caller(ctx), msg.ID)
}
