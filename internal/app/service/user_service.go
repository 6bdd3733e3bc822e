package service

import (
	"context"
	"strings"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common/security"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
)

type UserService struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
}

func NewUserService(users repository.UserRepository, hasher security.PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// UpdateUserRequest is a partial update; absent fields are left unchanged and an
// empty name or phone clears it.
type UpdateUserRequest struct {
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	Role            *string `json:"role,omitempty"`
	IsActive        *bool   `json:"isActive,omitempty"`
	IsEmailVerified *bool   `json:"isEmailVerified,omitempty"`
}

func (r UpdateUserRequest) Validate() common.FieldErrors {
	fe := common.FieldErrors{}
	if r.Email != nil {
		checkEmail(fe, *r.Email)
	}
	if r.Password != nil {
		checkPassword(fe, *r.Password)
	}
	if r.FirstName != nil {
		checkName(fe, "firstName", *r.FirstName)
	}
	if r.LastName != nil {
		checkName(fe, "lastName", *r.LastName)
	}
	if r.PhoneNumber != nil {
		checkPhone(fe, *r.PhoneNumber)
	}
	if r.Role != nil {
		if *r.Role == "" {
			fe.Add("role", "role must be one of: user, admin")
		}
		checkRole(fe, *r.Role)
	}
	return fe
}

func (r UpdateUserRequest) privileged() bool {
	return r.Role != nil || r.IsActive != nil || r.IsEmailVerified != nil
}

type UserList struct {
	Items    []*model.User `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// List returns every account, one page at a time. Admin only.
func (s *UserService) List(ctx context.Context, caller Caller, page model.Page) (*UserList, error) {
	if !caller.IsAdmin() {
		return nil, common.Unauthorized("Admin access required")
	}
	page = page.Normalize()
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return &UserList{Items: users, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

func (s *UserService) Get(ctx context.Context, caller Caller, id string) (*model.User, error) {
	if !caller.CanActOn(id) {
		return nil, common.Unauthorized("You can only access your own profile")
	}
	return s.users.FindByID(ctx, id)
}

// Update applies req to the account id. Role and status changes need an admin.
func (s *UserService) Update(ctx context.Context, caller Caller, id string, req UpdateUserRequest) (*model.User, error) {
	if !caller.CanActOn(id) {
		return nil, common.Unauthorized("You can only update your own profile")
	}
	if err := req.Validate().Err(); err != nil {
		return nil, err
	}
	if req.privileged() && !caller.IsAdmin() {
		return nil, common.Unauthorized("Only administrators can change roles or account status")
	}

	changes := repository.UserChanges{
		Role:            req.Role,
		IsActive:        req.IsActive,
		IsEmailVerified: req.IsEmailVerified,
		PhoneNumber:     req.PhoneNumber,
		FirstName:       trimmed(req.FirstName),
		LastName:        trimmed(req.LastName),
	}
	if req.Email != nil {
		current, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		changes.Email = &email
		if email != current.Email && req.IsEmailVerified == nil {
			unverified := false
			changes.IsEmailVerified = &unverified
		}
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, common.Unexpected(err, "users.update.hash")
		}
		changes.PasswordHash = &hash
	}
	return s.users.Update(ctx, id, changes)
}

// Delete removes the account id and returns it.
func (s *UserService) Delete(ctx context.Context, caller Caller, id string) (*model.User, error) {
	if !caller.CanActOn(id) {
		return nil, common.Unauthorized("You can only delete your own profile")
	}
	return s.users.Delete(ctx, id)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
