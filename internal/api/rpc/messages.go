// Package rpc serves the account and post operations over the message queue and
// provides the matching client for posts.
package rpc

import (
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
)

const (
	PatternCreateUser   = "create_user"
	PatternGetUsers     = "get_users"
	PatternGetUser      = "get_user"
	PatternUpdateUser   = "update_user"
	PatternDeleteUser   = "delete_user"
	PatternValidateUser = "validate_user"

	PatternCreatePost = "create_post"
	PatternGetPosts   = "get_posts"
	PatternGetPost    = "get_post"
	PatternUpdatePost = "update_post"
	PatternDeletePost = "delete_post"
)

// UserPatterns are served from the users queue, PostPatterns from the posts queue.
var (
	UserPatterns = []string{PatternCreateUser, PatternGetUsers, PatternGetUser, PatternUpdateUser, PatternDeleteUser, PatternValidateUser}
	PostPatterns = []string{PatternCreatePost, PatternGetPosts, PatternGetPost, PatternUpdatePost, PatternDeletePost}
)

// Credential is the token field every guarded message carries.
type Credential struct {
	Authentication string `json:"Authentication,omitempty"`
}

type CreateUserMessage struct {
	Credential
	service.RegisterRequest
}

type ValidateUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ByIDMessage addresses a single document. An empty ID on user patterns means the caller.
type ByIDMessage struct {
	Credential
	ID string `json:"id,omitempty"`
}

type PageMessage struct {
	Credential
	Page     int `json:"page,omitempty"`
	PageSize int `json:"pageSize,omitempty"`
}

type UpdateUserMessage struct {
	Credential
	ID string `json:"id,omitempty"`
	service.UpdateUserRequest
}

type CreatePostMessage struct {
	Credential
	service.CreatePostRequest
}

type UpdatePostMessage struct {
	Credential
	ID string `json:"id"`
	service.UpdatePostRequest
}
