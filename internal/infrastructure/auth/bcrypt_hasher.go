// Package auth provides the credential primitives used by the auth service:
// a bcrypt password hasher and an HS256 JWT codec.
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// maxPasswordBytes is bcrypt's input limit; longer inputs would be truncated.
const maxPasswordBytes = 72

// BcryptHasher implements ports.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, clamped to bcrypt's valid range.
// A zero cost selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost reports the work factor new hashes are generated with.
func (h *BcryptHasher) Cost() int { return h.cost }

// Hash generates a salted hash of password. bcrypt draws a fresh salt on
// every call, so hashing the same password twice gives different strings.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", domain.ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares password against hash in constant time. Any error,
// including a malformed hash, is a mismatch. Inputs over the bcrypt limit
// never match, since bcrypt would compare only their first 72 bytes.
func (h *BcryptHasher) Verify(password, hash string) bool {
	if len(password) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
