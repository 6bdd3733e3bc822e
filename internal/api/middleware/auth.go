package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

type contextKey string

const (
	UserCtxKey  contextKey = "user"
	TokenCtxKey contextKey = "token"
)

// Authenticator resolves the identity behind a raw token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// CredentialValidator checks an email and password pair.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, email, password string) (*model.User, error)
}

// TokenFromRequest reads the token from the Authentication cookie, falling back
// to an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(service.AuthCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return jwtauth.TokenFromHeader(r)
}

// JWTAuth rejects requests without a valid token and attaches the user to the context.
func JWTAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				common.RespondWithError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token != "" {
				if user, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(withUser(r.Context(), user, token))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocalAuth validates the email and password in the JSON body and attaches the
// matching user. The body is consumed.
func LocalAuth(validator CredentialValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&creds); err != nil {
				common.RespondWithError(w, r, common.InvalidInput("Invalid request payload", nil))
				return
			}
			user, err := validator.ValidateCredentials(r.Context(), creds.Email, creds.Password)
			if err != nil {
				common.RespondWithError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, "")))
		})
	}
}

// RequireRole allows only users holding one of roles. It must run after JWTAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, r, common.Unauthenticated("No authentication token provided"))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.RespondWithError(w, r, common.Unauthorized("Admin access required"))
		})
	}
}

func withUser(ctx context.Context, user *model.User, token string) context.Context {
	noteUser(ctx, user.ID)
	ctx = context.WithValue(ctx, UserCtxKey, user)
	ctx = context.WithValue(ctx, TokenCtxKey, token)
	return service.ContextWithCaller(ctx, service.CallerOf(user, token))
}

// UserFromContext returns the user attached by the auth middlewares.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*model.User)
	return user, ok && user != nil
}

// TokenFromContext returns the raw token the request authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenCtxKey).(string)
	return token, ok && token != ""
}
