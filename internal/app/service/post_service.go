package service

import (
	"context"
	"html"
	"strings"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
)

const (
	msgNotYourPost    = "You can only view your own posts"
	msgModifyNotYours = "You can only modify your own posts"
)

// PostGateway is the post API as seen by transports. PostService serves it in
// process; the message client serves it through the posts queue.
type PostGateway interface {
	Create(ctx context.Context, caller Caller, req CreatePostRequest) (*model.Post, error)
	List(ctx context.Context, caller Caller, page model.Page) (*model.PostList, error)
	Get(ctx context.Context, caller Caller, id string) (*model.Post, error)
	Update(ctx context.Context, caller Caller, id string, req UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, caller Caller, id string) (*model.Post, error)
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type PostService struct {
	posts   repository.PostRepository
	titles  *bluemonday.Policy
	content *bluemonday.Policy
}

var _ PostGateway = (*PostService)(nil)

func NewPostService(posts repository.PostRepository) *PostService {
	return &PostService{
		posts:   posts,
		titles:  bluemonday.StrictPolicy(),
		content: bluemonday.UGCPolicy(),
	}
}

// cleanTitle strips markup and returns plain text.
func (s *PostService) cleanTitle(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.titles.Sanitize(raw)))
}

func slugFor(title string) string {
	if sl := slug.Make(title); sl != "" {
		return sl
	}
	return "post"
}

func (s *PostService) Create(ctx context.Context, caller Caller, req CreatePostRequest) (*model.Post, error) {
	if caller.UserID == "" {
		return nil, common.Unauthenticated(msgNoToken)
	}
	title := s.cleanTitle(req.Title)
	fe := common.FieldErrors{}
	checkTitle(fe, title)
	if err := fe.Err(); err != nil {
		return nil, err
	}
	return s.posts.Create(ctx, &model.Post{
		Title:   title,
		Slug:    slugFor(title),
		Content: s.content.Sanitize(req.Content),
		UserID:  caller.UserID,
	})
}

// List returns the caller's own posts.
func (s *PostService) List(ctx context.Context, caller Caller, page model.Page) (*model.PostList, error) {
	if caller.UserID == "" {
		return nil, common.Unauthenticated(msgNoToken)
	}
	page = page.Normalize()
	posts, total, err := s.posts.ListByOwner(ctx, caller.UserID, page)
	if err != nil {
		return nil, err
	}
	return &model.PostList{Items: posts, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

// Get returns one of the caller's own posts.
func (s *PostService) Get(ctx context.Context, caller Caller, id string) (*model.Post, error) {
	return s.ownedPost(ctx, caller, id, msgNotYourPost)
}

func (s *PostService) Update(ctx context.Context, caller Caller, id string, req UpdatePostRequest) (*model.Post, error) {
	if _, err := s.ownedPost(ctx, caller, id, msgModifyNotYours); err != nil {
		return nil, err
	}
	changes := repository.PostChanges{}
	fe := common.FieldErrors{}
	if req.Title != nil {
		title := s.cleanTitle(*req.Title)
		checkTitle(fe, title)
		sl := slugFor(title)
		changes.Title, changes.Slug = &title, &sl
	}
	if req.Content != nil {
		content := s.content.Sanitize(*req.Content)
		changes.Content = &content
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	return s.posts.UpdateOwned(ctx, caller.UserID, id, changes)
}

func (s *PostService) Delete(ctx context.Context, caller Caller, id string) (*model.Post, error) {
	if _, err := s.ownedPost(ctx, caller, id, msgModifyNotYours); err != nil {
		return nil, err
	}
	return s.posts.DeleteOwned(ctx, caller.UserID, id)
}

// ownedPost tells a missing post apart from someone else's.
func (s *PostService) ownedPost(ctx context.Context, caller Caller, id, denied string) (*model.Post, error) {
	if caller.UserID == "" {
		return nil, common.Unauthenticated(msgNoToken)
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != caller.UserID {
		return nil, common.Unauthorized(denied)
	}
	return post, nil
}
