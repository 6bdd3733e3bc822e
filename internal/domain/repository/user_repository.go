package repository

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/docstore"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

// PhonePattern is the accepted phone number shape (E.164 without separators).
const PhonePattern = `^\+?[1-9]\d{1,14}$`

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, page model.Page) ([]*model.User, int64, error)
	Update(ctx context.Context, id string, changes UserChanges) (*model.User, error)
	Delete(ctx context.Context, id string) (*model.User, error)
	UpsertByEmail(ctx context.Context, user *model.User) (*model.User, error)
}

// UserChanges lists the fields to modify. Nil pointers leave a field untouched;
// an empty string clears an optional field.
type UserChanges struct {
	Email           *string
	PasswordHash    *string
	Role            *string
	IsActive        *bool
	IsEmailVerified *bool
	FirstName       *string
	LastName        *string
	PhoneNumber     *string
}

// userDoc is the stored form of a user; unlike model.User it carries the password hash.
type userDoc struct {
	docstore.Base
	Email           string `json:"email" jsonschema:"format=email"`
	Password        string `json:"password" jsonschema:"minLength=1"`
	Role            string `json:"role" jsonschema:"enum=user,enum=admin"`
	IsActive        bool   `json:"isActive"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	FirstName       string `json:"firstName,omitempty" jsonschema:"maxLength=50"`
	LastName        string `json:"lastName,omitempty" jsonschema:"maxLength=50"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
}

// JSONSchemaExtend adds constraints that cannot be written as struct tags.
func (userDoc) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	if phone, ok := s.Properties.Get("phoneNumber"); ok {
		phone.Pattern = PhonePattern
	}
}

func toUserDoc(u *model.User) *userDoc {
	return &userDoc{
		Base:            u.Base,
		Email:           normalizeEmail(u.Email),
		Password:        u.PasswordHash,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		PhoneNumber:     u.PhoneNumber,
	}
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		Base:            d.Base,
		Email:           d.Email,
		PasswordHash:    d.Password,
		Role:            d.Role,
		IsActive:        d.IsActive,
		IsEmailVerified: d.IsEmailVerified,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		PhoneNumber:     d.PhoneNumber,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type docUserRepository struct {
	users *docstore.Collection[userDoc, *userDoc]
}

// NewDocUserRepository stores users in the "users" collection. Email uniqueness is
// enforced case-insensitively by the users_email_key index.
func NewDocUserRepository(store *docstore.Store) (UserRepository, error) {
	users, err := docstore.NewCollection[userDoc](store, "users",
		docstore.ConflictMessage("users_email_key", "Email already exists"),
		docstore.ConflictMessage("users_phone_key", "Phone number already exists"),
		docstore.NotFoundMessage("User not found"),
	)
	if err != nil {
		return nil, err
	}
	return &docUserRepository{users: users}, nil
}

func (r *docUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	doc, err := r.users.Create(ctx, toUserDoc(user))
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *docUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	doc, err := r.users.FindOne(ctx, docstore.Filter{"email": normalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *docUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.users.FindOne(ctx, docstore.ByID(id))
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *docUserRepository) List(ctx context.Context, page model.Page) ([]*model.User, int64, error) {
	page = page.Normalize()
	docs, err := r.users.FindMany(ctx, nil, docstore.Limit(page.Size), docstore.Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	total, err := r.users.Count(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, total, nil
}

func (r *docUserRepository) Update(ctx context.Context, id string, changes UserChanges) (*model.User, error) {
	doc, err := r.users.FindOneAndUpdate(ctx, docstore.ByID(id), changes.patch())
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *docUserRepository) Delete(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.users.DeleteOne(ctx, docstore.ByID(id))
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *docUserRepository) UpsertByEmail(ctx context.Context, user *model.User) (*model.User, error) {
	doc := toUserDoc(user)
	doc, err := r.users.Upsert(ctx, docstore.Filter{"email": doc.Email}, doc)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (c UserChanges) patch() docstore.Patch {
	p := docstore.Patch{}
	if c.Email != nil {
		p["email"] = normalizeEmail(*c.Email)
	}
	if c.PasswordHash != nil {
		p["password"] = *c.PasswordHash
	}
	if c.Role != nil {
		p["role"] = *c.Role
	}
	if c.IsActive != nil {
		p["isActive"] = *c.IsActive
	}
	if c.IsEmailVerified != nil {
		p["isEmailVerified"] = *c.IsEmailVerified
	}
	optional(p, "firstName", c.FirstName)
	optional(p, "lastName", c.LastName)
	optional(p, "phoneNumber", c.PhoneNumber)
	return p
}

// optional sets key, or removes it when v points at an empty string.
func optional(p docstore.Patch, key string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		p[key] = nil
		return
	}
	p[key] = *v
}
