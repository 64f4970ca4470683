package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenTypeBearer is the token_type reported with every issued token.
const TokenTypeBearer = "bearer"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	AccessToken string
	TokenType   string
	User        *domain.User
	Claims      domain.Claims
}

// Verdict is the structured outcome of a token verification.
type Verdict struct {
	Valid  bool
	Claims *domain.Claims
	Reason string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Verify(ctx context.Context, token string) Verdict
}
