// Package memory provides an in-process credential store for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
	nextID  int64
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]domain.User)}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("find user by email", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("check email", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[email]
	return ok, nil
}

// Insert assigns the next sequential ID. The email check and the write happen
// under one lock, mirroring a unique index.
func (s *UserStore) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("insert user", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	s.nextID++
	stored := *user
	stored.ID = strconv.FormatInt(s.nextID, 10)
	if stored.Role == "" {
		stored.Role = domain.RoleCustomer
	}
	s.byEmail[stored.Email] = stored
	return &stored, nil
}

// Len reports the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

func (s *UserStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
