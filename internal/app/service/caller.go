package service

import (
	"context"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

// Caller is the authenticated identity a request acts as. Token is the raw
// credential, forwarded when the request is relayed to another process.
type Caller struct {
	UserID string
	Role   string
	Token  string
}

func CallerOf(u *model.User, token string) Caller {
	return Caller{UserID: u.ID, Role: u.Role, Token: token}
}

func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// CanActOn reports whether c may read or modify the account userID.
func (c Caller) CanActOn(userID string) bool {
	return c.UserID != "" && (c.IsAdmin() || c.UserID == userID)
}

type callerKey struct{}

// ContextWithCaller attaches c to ctx.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller attached by ContextWithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
