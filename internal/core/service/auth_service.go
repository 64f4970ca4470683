package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = time.Hour

// dummyPassword is hashed once at construction. Logins for unknown emails
// verify against it so they cost the same as a wrong password.
const dummyPassword = "timing-equalisation-placeholder"

// AuthService implements registration, login and token verification.
type AuthService struct {
	store     ports.CredentialStore
	hasher    ports.PasswordHasher
	tokens    ports.TokenCodec
	tokenTTL  time.Duration
	dummyHash string
	log       zerolog.Logger
}

func NewAuthService(
	store ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	tokenTTL time.Duration,
	log zerolog.Logger,
) (*AuthService, error) {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash placeholder: %w", err)
	}
	return &AuthService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		dummyHash: dummy,
		log:       log,
	}, nil
}

// Register creates an account and issues its first token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	// 1. Reject known emails before paying for a hash.
	exists, err := s.store.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	// 2. Hash.
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrPasswordTooLong) {
			return nil, err
		}
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	// 3. Insert. A concurrent registration may have won since step 1; the
	// store's unique constraint reports it and the caller sees the same error.
	user, err := s.store.Insert(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.log.Debug().Str("email", in.Email).Msg("registration lost insert race")
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	// 4. Issue.
	return s.issue(user)
}

// Login authenticates by email and password. An unknown email and a wrong
// password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Verify validates token offline and always answers with a verdict.
func (s *AuthService) Verify(_ context.Context, token string) ports.Verdict {
	claims, err := s.tokens.Validate(token)
	if err == nil {
		return ports.Verdict{Valid: true, Claims: &claims}
	}

	switch domain.TokenErrorKindOf(err) {
	case domain.TokenExpired:
		return ports.Verdict{Reason: "expired"}
	case domain.TokenBadSignature:
		return ports.Verdict{Reason: "signature verification failed"}
	case domain.TokenMalformed:
		return ports.Verdict{Reason: err.Error()}
	default:
		s.log.Warn().Err(err).Msg("unexpected token validation error")
		return ports.Verdict{Reason: "invalid token"}
	}
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, claims, err := s.tokens.Issue(domain.ClaimsFor(user), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{
		AccessToken: token,
		TokenType:   ports.TokenTypeBearer,
		User:        user,
		Claims:      claims,
	}, nil
}
