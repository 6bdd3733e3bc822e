// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
)

var (
	_ repository.UserRepository = (*Users)(nil)
	_ repository.PostRepository = (*Posts)(nil)
)

// Users keeps users in a map and enforces case-insensitive email uniqueness.
type Users struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*model.User
	order map[string]int
}

func NewUsers() *Users {
	return &Users{byID: map[string]*model.User{}, order: map[string]int{}}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (m *Users) emailTaken(email, except string) bool {
	for id, u := range m.byID {
		if id != except && u.Email == strings.ToLower(email) {
			return true
		}
	}
	return false
}

func (m *Users) Create(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(user.Email, "") {
		return nil, common.Conflict("Email already exists")
	}
	u := cloneUser(user)
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	m.seq++
	m.order[u.ID] = m.seq
	return cloneUser(u), nil
}

func (m *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return cloneUser(u), nil
		}
	}
	return nil, common.NotFound("User not found")
}

func (m *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.NotFound("User not found")
	}
	return cloneUser(u), nil
}

func (m *Users) List(_ context.Context, page model.Page) ([]*model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*model.User, 0, len(m.byID))
	for _, u := range m.byID {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return m.order[all[i].ID] < m.order[all[j].ID] })
	page = page.Normalize()
	start := min(page.Offset(), len(all))
	end := min(start+page.Size, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *Users) Update(_ context.Context, id string, c repository.UserChanges) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.NotFound("User not found")
	}
	if c.Email != nil && m.emailTaken(*c.Email, id) {
		return nil, common.Conflict("Email already exists")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Email, c.Email)
	set(&u.PasswordHash, c.PasswordHash)
	set(&u.Role, c.Role)
	set(&u.FirstName, c.FirstName)
	set(&u.LastName, c.LastName)
	set(&u.PhoneNumber, c.PhoneNumber)
	if c.IsActive != nil {
		u.IsActive = *c.IsActive
	}
	if c.IsEmailVerified != nil {
		u.IsEmailVerified = *c.IsEmailVerified
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (m *Users) Delete(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.NotFound("User not found")
	}
	delete(m.byID, id)
	return u, nil
}

func (m *Users) UpsertByEmail(ctx context.Context, user *model.User) (*model.User, error) {
	existing, err := m.FindByEmail(ctx, user.Email)
	if err != nil {
		return m.Create(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := cloneUser(user)
	u.Base = existing.Base
	m.byID[u.ID] = u
	return cloneUser(u), nil
}

// Posts keeps posts in a map, ordered by insertion.
type Posts struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*model.Post
	order map[string]int
}

func NewPosts() *Posts {
	return &Posts{byID: map[string]*model.Post{}, order: map[string]int{}}
}

func (m *Posts) Create(_ context.Context, post *model.Post) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *post
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.ID] = &p
	m.seq++
	m.order[p.ID] = m.seq
	out := p
	return &out, nil
}

func (m *Posts) FindByID(_ context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, common.NotFound("Post not found")
	}
	out := *p
	return &out, nil
}

func (m *Posts) ListByOwner(_ context.Context, ownerID string, page model.Page) ([]*model.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []*model.Post
	for _, p := range m.byID {
		if p.UserID == ownerID {
			c := *p
			owned = append(owned, &c)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return m.order[owned[i].ID] < m.order[owned[j].ID] })
	page = page.Normalize()
	start := min(page.Offset(), len(owned))
	end := min(start+page.Size, len(owned))
	return owned[start:end], int64(len(owned)), nil
}

func (m *Posts) UpdateOwned(_ context.Context, ownerID, id string, c repository.PostChanges) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.UserID != ownerID {
		return nil, common.NotFound("Post not found")
	}
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Slug != nil {
		p.Slug = *c.Slug
	}
	if c.Content != nil {
		p.Content = *c.Content
	}
	out := *p
	return &out, nil
}

func (m *Posts) DeleteOwned(_ context.Context, ownerID, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.UserID != ownerID {
		return nil, common.NotFound("Post not found")
	}
	delete(m.byID, id)
	return p, nil
}

