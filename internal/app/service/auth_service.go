package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common/security"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
)

// AuthCookie carries the access token for browser clients.
const AuthCookie = "Authentication"

const (
	msgNoToken            = "No authentication token provided"
	msgInvalidCredentials = "Invalid email or password"
)

// ResponseSink receives cookies produced by login and logout.
type ResponseSink interface {
	SetCookie(c *http.Cookie)
}

// CookieOptions control the attributes of the authentication cookie.
type CookieOptions struct {
	Path   string
	Secure bool
}

type AuthService struct {
	users   repository.UserRepository
	hasher  security.PasswordHasher
	tokens  *security.TokenService
	cookies CookieOptions

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.UserRepository, hasher security.PasswordHasher, tokens *security.TokenService, cookies CookieOptions) *AuthService {
	if cookies.Path == "" {
		cookies.Path = "/api"
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, cookies: cookies}
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Role            string `json:"role,omitempty"`
	IsActive        *bool  `json:"isActive,omitempty"`
	IsEmailVerified *bool  `json:"isEmailVerified,omitempty"`
}

func (r RegisterRequest) Validate() common.FieldErrors {
	fe := common.FieldErrors{}
	checkEmail(fe, r.Email)
	checkPassword(fe, r.Password)
	checkName(fe, "firstName", r.FirstName)
	checkName(fe, "lastName", r.LastName)
	checkPhone(fe, r.PhoneNumber)
	checkRole(fe, r.Role)
	return fe
}

// privileged reports whether r asks for anything beyond the defaults of a self-registration.
func (r RegisterRequest) privileged() bool {
	return r.Role == model.RoleAdmin ||
		(r.IsActive != nil && !*r.IsActive) ||
		(r.IsEmailVerified != nil && *r.IsEmailVerified)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() common.FieldErrors {
	fe := common.FieldErrors{}
	checkEmail(fe, r.Email)
	if r.Password == "" {
		fe.Add("password", "password is required")
	}
	return fe
}

type RegisterResponse struct {
	User *model.User `json:"user"`
}

type LoginResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

// Register creates an account. Role and status flags other than the defaults
// require an admin caller on ctx.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := req.Validate().Err(); err != nil {
		return nil, err
	}
	if req.privileged() {
		if caller, ok := CallerFromContext(ctx); !ok || !caller.IsAdmin() {
			return nil, common.Unauthorized("Only administrators can assign roles or account status")
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, common.Unexpected(err, "auth.register.hash")
	}

	user := &model.User{
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:    hash,
		Role:            model.RoleUser,
		IsActive:        true,
		IsEmailVerified: false,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		PhoneNumber:     req.PhoneNumber,
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsEmailVerified != nil {
		user.IsEmailVerified = *req.IsEmailVerified
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return &RegisterResponse{User: created}, nil
}

// Login issues a token for an already validated user and hands the cookie to sink.
// A nil sink skips the cookie.
func (s *AuthService) Login(ctx context.Context, user *model.User, sink ResponseSink) (*LoginResponse, error) {
	if user == nil {
		return nil, common.Unauthenticated(msgInvalidCredentials)
	}
	token, expiresAt, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, common.Unexpected(err, "auth.login.sign")
	}
	if sink != nil {
		sink.SetCookie(s.cookie(token, expiresAt))
	}
	return &LoginResponse{User: user, AccessToken: token}, nil
}

// Logout clears the authentication cookie. Issued tokens stay valid until they expire.
func (s *AuthService) Logout(sink ResponseSink) {
	if sink == nil {
		return
	}
	c := s.cookie("", time.Unix(0, 0).UTC())
	c.MaxAge = -1
	sink.SetCookie(c)
}

func (s *AuthService) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookie,
		Value:    value,
		Path:     s.cookies.Path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ValidateCredentials returns the user owning email when password matches. Unknown
// emails and wrong passwords fail identically.
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, common.Unauthenticated(msgInvalidCredentials)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if common.IsKind(err, common.KindNotFound) || common.IsKind(err, common.KindInvalidInput) {
			s.hasher.Check(password, s.placeholderHash())
			return nil, common.Unauthenticated(msgInvalidCredentials)
		}
		return nil, err
	}
	if !s.hasher.Check(password, user.PasswordHash) {
		return nil, common.Unauthenticated(msgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, common.Unauthenticated(msgInvalidCredentials)
	}
	return user, nil
}

// Authenticate resolves the user a token was issued to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, common.Unauthenticated(msgNoToken)
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if common.IsKind(err, common.KindNotFound) || common.IsKind(err, common.KindInvalidInput) {
			return nil, oops.With("user_id", userID).Wrap(common.ErrInvalidToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, oops.With("user_id", userID).Wrap(common.ErrInvalidToken)
	}
	return user, nil
}

// placeholderHash keeps the cost of a failed lookup close to a real comparison.
func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("placeholder-password")
	})
	return s.dummyHash
}
