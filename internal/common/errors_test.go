package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", NotFound("User not found"), KindNotFound},
		{"conflict", Conflict("Email already exists"), KindConflict},
		{"invalid input", InvalidInput("bad", FieldErrors{"email": "required"}), KindInvalidInput},
		{"unauthenticated", Unauthenticated("nope"), KindUnauthenticated},
		{"unauthorized", Unauthorized("nope"), KindUnauthorized},
		{"rate limited", RateLimited("slow down"), KindRateLimited},
		{"config", ConfigErrorf("bad ttl %q", "x"), KindConfig},
		{"invalid token", ErrInvalidToken, KindUnauthenticated},
		{"deadline", context.DeadlineExceeded, KindUnavailable},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), KindUnavailable},
		{"canceled", context.Canceled, KindUnavailable},
		{"wrapped canceled", fmt.Errorf("pop: %w", context.Canceled), KindUnavailable},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, KindConflict},
		{"plain error", errors.New("boom"), KindUnexpected},
		{"unknown oops code", oops.Code("SOMETHING_ELSE").Errorf("x"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOf_KeepsInnerCodeWhenWrapped(t *testing.T) {
	inner := NotFound("Post not found")
	wrapped := oops.With("operation", "get post").Wrap(inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "Post not found", PublicMessage(wrapped))

	viaFmt := fmt.Errorf("service: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(viaFmt))
}

func TestHTTPStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatusFromError(nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromError(NotFound("x")))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromError(Conflict("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(InvalidInput("x", nil)))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatusFromError(Unauthenticated("x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatusFromError(Unauthorized("x")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromError(Unavailable(context.DeadlineExceeded, "find")))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusFromError(RateLimited("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromError(errors.New("boom")))
}

func TestPublicMessage_HidesUnexpectedDetails(t *testing.T) {
	err := Unexpected(errors.New("pq: relation users does not exist"), "find user")
	assert.Equal(t, "Internal server error", PublicMessage(err))
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	require.NoError(t, fe.Err())

	fe.Add("email", "Email is required")
	fe.Add("email", "ignored")
	fe.Add("password", "Password is too short")

	err := fe.Err()
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	fields := FieldsOf(err)
	assert.Equal(t, "Email is required", fields["email"])
	assert.Equal(t, "Password is too short", fields["password"])
	assert.Equal(t, "email: Email is required; password: Password is too short", fe.String())
}

func TestWireError_RoundTrip(t *testing.T) {
	t.Run("keeps kind and message", func(t *testing.T) {
		w := ToWire(Unauthorized("You can only delete your own posts"))
		require.NotNil(t, w)
		assert.Equal(t, KindUnauthorized, w.Kind)

		err := w.Err()
		assert.Equal(t, KindUnauthorized, KindOf(err))
		assert.Equal(t, "You can only delete your own posts", PublicMessage(err))
	})

	t.Run("keeps field errors", func(t *testing.T) {
		w := ToWire(InvalidInput("Validation failed", FieldErrors{"title": "too short"}))
		err := w.Err()
		assert.Equal(t, KindInvalidInput, KindOf(err))
		assert.Equal(t, "too short", FieldsOf(err)["title"])
	})

	t.Run("unknown kind becomes unexpected", func(t *testing.T) {
		w := &WireError{Kind: "MYSTERY", Message: "?"}
		assert.Equal(t, KindUnexpected, KindOf(w.Err()))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToWire(nil))
		var w *WireError
		assert.NoError(t, w.Err())
	})
}
