package rpc

import (
	"context"
	"encoding/json"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/worker"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Guard resolves the Authentication field of a message into a caller on the context.
type Guard struct {
	auth Authenticator
}

func NewGuard(auth Authenticator) Guard {
	return Guard{auth: auth}
}

func tokenOf(data json.RawMessage) string {
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return ""
	}
	return cred.Authentication
}

// Require rejects messages without a valid token.
func (g Guard) Require(next worker.HandlerFunc) worker.HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, error) {
		token := tokenOf(data)
		if token == "" {
			return nil, common.Unauthenticated("No authentication token provided")
		}
		user, err := g.auth.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return next(service.ContextWithCaller(ctx, service.CallerOf(user, token)), data)
	}
}

// Optional attaches the caller when the token is valid and otherwise continues anonymously.
func (g Guard) Optional(next worker.HandlerFunc) worker.HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, error) {
		if token := tokenOf(data); token != "" {
			if user, err := g.auth.Authenticate(ctx, token); err == nil {
				ctx = service.ContextWithCaller(ctx, service.CallerOf(user, token))
			}
		}
		return next(ctx, data)
	}
}
