package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository/repotest"
)

var (
	owner    = Caller{UserID: "11111111-1111-4111-8111-111111111111", Role: model.RoleUser}
	stranger = Caller{UserID: "22222222-2222-4222-8222-222222222222", Role: model.RoleUser}
)

func newPosts(t *testing.T) *PostService {
	t.Helper()
	return NewPostService(repotest.NewPosts())
}

func TestPostService_CreateSanitizes(t *testing.T) {
	svc := newPosts(t)

	post, err := svc.Create(context.Background(), owner, CreatePostRequest{
		Title:   "<b>Hello</b> & welcome",
		Content: `<p>Hi <a href="https://example.com">there</a></p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome", post.Title)
	assert.Equal(t, "hello-and-welcome", post.Slug)
	assert.NotContains(t, post.Content, "<script>")
	assert.Contains(t, post.Content, "<p>Hi")
	assert.Equal(t, owner.UserID, post.UserID)
}

func TestPostService_CreateValidation(t *testing.T) {
	svc := newPosts(t)

	_, err := svc.Create(context.Background(), owner, CreatePostRequest{Title: "<i>tiny</i>"})
	require.Error(t, err)
	assert.Equal(t, common.KindInvalidInput, common.KindOf(err))
	assert.Contains(t, common.FieldsOf(err), "title")

	_, err = svc.Create(context.Background(), Caller{}, CreatePostRequest{Title: "Long enough"})
	assert.Equal(t, common.KindUnauthenticated, common.KindOf(err))
}

func TestPostService_ListIsScopedToCaller(t *testing.T) {
	svc := newPosts(t)
	ctx := context.Background()
	for _, title := range []string{"First post", "Second post", "Third post"} {
		_, err := svc.Create(ctx, owner, CreatePostRequest{Title: title})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, stranger, CreatePostRequest{Title: "Not yours"})
	require.NoError(t, err)

	list, err := svc.List(ctx, owner, model.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.Equal(t, 2, list.Page)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Third post", list.Items[0].Title)
}

func TestPostService_GetOwnPostOnly(t *testing.T) {
	svc := newPosts(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, owner, CreatePostRequest{Title: "Private thoughts", Content: "secret"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	got, err = svc.Get(ctx, stranger, post.ID)
	assert.Nil(t, got)
	assert.Equal(t, common.KindUnauthorized, common.KindOf(err))

	_, err = svc.Get(ctx, Caller{}, post.ID)
	assert.Equal(t, common.KindUnauthenticated, common.KindOf(err))

	_, err = svc.Get(ctx, stranger, "33333333-3333-4333-8333-333333333333")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestPostService_UpdateOwnership(t *testing.T) {
	svc := newPosts(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, owner, CreatePostRequest{Title: "Original title"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, post.ID, UpdatePostRequest{Title: ptr("Hijacked title")})
	assert.Equal(t, common.KindUnauthorized, common.KindOf(err))

	_, err = svc.Update(ctx, owner, post.ID, UpdatePostRequest{Title: ptr("abc")})
	assert.Equal(t, common.KindInvalidInput, common.KindOf(err))

	updated, err := svc.Update(ctx, owner, post.ID, UpdatePostRequest{Title: ptr("Renamed title"), Content: ptr("body")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", updated.Title)
	assert.Equal(t, "renamed-title", updated.Slug)
	assert.Equal(t, "body", updated.Content)

	_, err = svc.Update(ctx, owner, "33333333-3333-4333-8333-333333333333", UpdatePostRequest{Content: ptr("x")})
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestPostService_Delete(t *testing.T) {
	svc := newPosts(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, owner, CreatePostRequest{Title: "Short lived"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, stranger, post.ID)
	assert.Equal(t, common.KindUnauthorized, common.KindOf(err))

	deleted, err := svc.Delete(ctx, owner, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.ID)

	_, err = svc.Get(ctx, owner, post.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}
