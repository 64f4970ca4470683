package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const usersCollection = "users"

// UserStore implements ports.CredentialStore on a users collection with a
// unique index on email. Each call runs inside its own session, ended when
// the call returns.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
}

// EnsureIndexes creates the unique email index the duplicate check relies on.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (s *UserStore) withSession(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	return s.coll.Database().Client().UseSession(ctx, fn)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var mu mongoUser
	err := s.withSession(ctx, func(sc mongo.SessionContext) error {
		return s.coll.FindOne(sc, bson.M{"email": email}).Decode(&mu)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStoreError("find user by email", err)
	}
	return toDomain(&mu), nil
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.withSession(ctx, func(sc mongo.SessionContext) error {
		var err error
		n, err = s.coll.CountDocuments(sc, bson.M{"email": email}, options.Count().SetLimit(1))
		return err
	})
	if err != nil {
		return false, domain.NewStoreError("check email", err)
	}
	return n > 0, nil
}

func (s *UserStore) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := mongoUser{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
	}
	if doc.Role == "" {
		doc.Role = domain.RoleCustomer
	}

	err := s.withSession(ctx, func(sc mongo.SessionContext) error {
		res, err := s.coll.InsertOne(sc, doc)
		if err != nil {
			return err
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			doc.ID = oid
		}
		return nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.NewStoreError("insert user", err)
	}
	return toDomain(&doc), nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func toDomain(mu *mongoUser) *domain.User {
	return &domain.User{
		ID:           mu.ID.Hex(),
		Name:         mu.Name,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Role:         mu.Role,
	}
}
