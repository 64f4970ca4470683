package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialStore defines the persistence operations the auth service needs.
//
// Implementations hold one connection for the duration of each call and
// release it on every return path. Infrastructure failures are reported as
// *domain.StoreError.
type CredentialStore interface {
	// FindByEmail returns domain.ErrUserNotFound when no row matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Insert persists user and returns the stored record with its ID set.
	// A uniqueness violation on email yields domain.ErrDuplicateEmail.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
}

// StorePinger is implemented by stores that can report their own liveness.
type StorePinger interface {
	Ping(ctx context.Context) error
}
