package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for iat and exp.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the lifetime of every issued token.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token asserting userID, valid until the returned expiry.
func (s *TokenService) Sign(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("cannot sign a token without a subject")
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":    userID,
		"userId": userID,
		"iat":    issuedAt.Unix(),
		"exp":    expiresAt.Unix(),
	}
	_, tokenString, err := s.auth.Encode(claims)
	if err != nil {
		return "", time.Time{}, common.Unexpected(err, "sign token")
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature and expiry and returns the asserted user id.
// Every failure is common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrInvalidToken
	}
	token, err := jwtauth.VerifyToken(s.auth, tokenString)
	if err != nil || token == nil {
		return "", common.ErrInvalidToken
	}
	if exp := token.Expiration(); exp.IsZero() || !s.now().Before(exp) {
		return "", common.ErrInvalidToken
	}
	if sub := token.Subject(); sub != "" {
		return sub, nil
	}
	userID, err := GetUserIDFromClaims(jwt.MapClaims(token.PrivateClaims()))
	if err != nil {
		return "", common.ErrInvalidToken
	}
	return userID, nil
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["userId"].(string)
	if !ok || id == "" {
		return "", errors.New("userId claim is missing or not a string")
	}
	return id, nil
}
