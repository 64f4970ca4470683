// Package postgres implements the credential store over a Postgres `users`
// relation using gorm and the pgx driver.
package postgres

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// userModel maps the users relation: id, name, email (unique), password_hash, role.
type userModel struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string `gorm:"column:name;not null"`
	Email        string `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Role         string `gorm:"column:role;not null;default:customer"`
}

func (userModel) TableName() string { return "users" }

// UserStore implements ports.CredentialStore. Every call runs on a single
// connection checked out from the pool and returned when the call ends.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// withConn checks out one connection for fn and returns it on every path.
func (s *UserStore) withConn(ctx context.Context, fn func(conn *gorm.DB) error) error {
	return s.db.WithContext(ctx).Connection(fn)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	err := s.withConn(ctx, func(conn *gorm.DB) error {
		return conn.Where("email = ?", email).Take(&m).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStoreError("find user by email", errors.Wrap(err, "select users"))
	}
	return toDomain(&m), nil
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var ids []int64
	err := s.withConn(ctx, func(conn *gorm.DB) error {
		return conn.Model(&userModel{}).Where("email = ?", email).Limit(1).Pluck("id", &ids).Error
	})
	if err != nil {
		return false, domain.NewStoreError("check email", errors.Wrap(err, "select users"))
	}
	return len(ids) > 0, nil
}

// Insert writes the row and reads back every column with RETURNING so the
// store-assigned id and defaulted role are reflected in the result.
func (s *UserStore) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := fromDomain(user)
	err := s.withConn(ctx, func(conn *gorm.DB) error {
		return conn.Clauses(clause.Returning{}).Create(m).Error
	})
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.NewStoreError("insert user", errors.Wrap(err, "insert users"))
	}
	return toDomain(m), nil
}

// Ping verifies a connection can be checked out and used.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *gorm.DB) error {
		return conn.Exec("SELECT 1").Error
	})
}

func toDomain(m *userModel) *domain.User {
	return &domain.User{
		ID:           strconv.FormatInt(m.ID, 10),
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
	}
}

func fromDomain(u *domain.User) *userModel {
	return &userModel{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
	}
}
