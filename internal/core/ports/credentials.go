package ports

import (
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A malformed hash is
	// reported as a mismatch.
	Verify(password, hash string) bool
}

// TokenCodec issues and validates signed access tokens.
type TokenCodec interface {
	// Issue stamps claims with issue and expiry times, signs them and
	// returns the token along with the claims as embedded.
	Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error)
	// Validate returns the embedded claims or a *domain.TokenError.
	Validate(token string) (domain.Claims, error)
}
