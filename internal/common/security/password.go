package security

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for every stored password.
const BcryptCost = 10

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Check(plaintext, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt at BcryptCost.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: BcryptCost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", oops.Code("PASSWORD_EMPTY").Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", oops.With("operation", "hash password").Wrap(err)
	}
	return string(hash), nil
}

// Check compares in constant time. A malformed hash never matches.
func (h *BcryptHasher) Check(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
