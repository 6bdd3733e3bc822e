package repository

import (
	"context"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/docstore"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) (*model.Post, error)
	FindByID(ctx context.Context, id string) (*model.Post, error)
	ListByOwner(ctx context.Context, ownerID string, page model.Page) ([]*model.Post, int64, error)
	UpdateOwned(ctx context.Context, ownerID, id string, changes PostChanges) (*model.Post, error)
	DeleteOwned(ctx context.Context, ownerID, id string) (*model.Post, error)
}

// PostChanges lists the post fields to modify; nil leaves a field untouched.
type PostChanges struct {
	Title   *string
	Slug    *string
	Content *string
}

type docPostRepository struct {
	posts *docstore.Collection[model.Post, *model.Post]
}

// NewDocPostRepository stores posts in the "posts" collection. The owner of a post
// cannot change once it is created.
func NewDocPostRepository(store *docstore.Store) (PostRepository, error) {
	posts, err := docstore.NewCollection[model.Post](store, "posts",
		docstore.Immutable("userId"),
		docstore.NotFoundMessage("Post not found"),
	)
	if err != nil {
		return nil, err
	}
	return &docPostRepository{posts: posts}, nil
}

func (r *docPostRepository) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	return r.posts.Create(ctx, post)
}

func (r *docPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return r.posts.FindOne(ctx, docstore.ByID(id))
}

func (r *docPostRepository) ListByOwner(ctx context.Context, ownerID string, page model.Page) ([]*model.Post, int64, error) {
	page = page.Normalize()
	filter := docstore.Filter{"userId": ownerID}
	posts, err := r.posts.FindMany(ctx, filter, docstore.Limit(page.Size), docstore.Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	total, err := r.posts.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *docPostRepository) UpdateOwned(ctx context.Context, ownerID, id string, changes PostChanges) (*model.Post, error) {
	patch := docstore.Patch{}
	if changes.Title != nil {
		patch["title"] = *changes.Title
	}
	if changes.Slug != nil {
		patch["slug"] = *changes.Slug
	}
	if changes.Content != nil {
		patch["content"] = *changes.Content
	}
	return r.posts.FindOneAndUpdate(ctx, owned(ownerID, id), patch)
}

func (r *docPostRepository) DeleteOwned(ctx context.Context, ownerID, id string) (*model.Post, error) {
	return r.posts.DeleteOne(ctx, owned(ownerID, id))
}

func owned(ownerID, id string) docstore.Filter {
	return docstore.Filter{"id": id, "userId": ownerID}
}
