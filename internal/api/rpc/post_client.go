package rpc

import (
	"context"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
)

var _ service.PostGateway = (*PostClient)(nil)

// PostClient is a PostGateway that forwards every call to the posts queue. The
// caller's token travels as the Authentication field and is checked remotely.
type PostClient struct {
	client *queue.Client
}

func NewPostClient(client *queue.Client) *PostClient {
	return &PostClient{client: client}
}

func credentialOf(c service.Caller) Credential {
	return Credential{Authentication: c.Token}
}

func (p *PostClient) Create(ctx context.Context, caller service.Caller, req service.CreatePostRequest) (*model.Post, error) {
	var post model.Post
	msg := CreatePostMessage{Credential: credentialOf(caller), CreatePostRequest: req}
	if err := p.client.Call(ctx, PatternCreatePost, msg, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (p *PostClient) List(ctx context.Context, caller service.Caller, page model.Page) (*model.PostList, error) {
	var list model.PostList
	msg := PageMessage{Credential: credentialOf(caller), Page: page.Number, PageSize: page.Size}
	if err := p.client.Call(ctx, PatternGetPosts, msg, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (p *PostClient) Get(ctx context.Context, caller service.Caller, id string) (*model.Post, error) {
	return p.byID(ctx, PatternGetPost, caller, id)
}

func (p *PostClient) Update(ctx context.Context, caller service.Caller, id string, req service.UpdatePostRequest) (*model.Post, error) {
	var post model.Post
	msg := UpdatePostMessage{Credential: credentialOf(caller), ID: id, UpdatePostRequest: req}
	if err := p.client.Call(ctx, PatternUpdatePost, msg, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (p *PostClient) Delete(ctx context.Context, caller service.Caller, id string) (*model.Post, error) {
	return p.byID(ctx, PatternDeletePost, caller, id)
}

func (p *PostClient) byID(ctx context.Context, pattern string, caller service.Caller, id string) (*model.Post, error) {
	var post model.Post
	if err := p.client.Call(ctx, pattern, ByIDMessage{Credential: credentialOf(caller), ID: id}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}
