package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// tokenClaims is the JSON payload of an access token.
type tokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec implements ports.TokenCodec with HS256-signed JWTs.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption configures a JWTCodec.
type CodecOption func(*JWTCodec)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *JWTCodec) { c.now = now }
}

// NewJWTCodec returns a codec signing with secret.
func NewJWTCodec(secret string, opts ...CodecOption) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	c := &JWTCodec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Issue stamps claims with iat/exp/jti and signs them. Times are truncated to
// whole seconds, the precision a JWT NumericDate carries, so the returned
// claims equal what Validate later decodes.
func (c *JWTCodec) Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error) {
	if ttl <= 0 {
		return "", domain.Claims{}, errors.New("token ttl must be positive")
	}

	now := c.now().UTC().Truncate(time.Second)
	claims.ID = uuid.NewString()
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(ttl).Truncate(time.Second)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, err
	}
	return signed, claims, nil
}

// Validate checks the signature, then expiry, and returns the embedded
// claims. Failures are *domain.TokenError.
func (c *JWTCodec) Validate(token string) (domain.Claims, error) {
	var tc tokenClaims
	if _, err := c.parser.ParseWithClaims(token, &tc, c.key); err != nil {
		return domain.Claims{}, &domain.TokenError{Kind: c.classify(token, err), Err: err}
	}

	out := domain.Claims{
		ID:      tc.ID,
		Subject: tc.Subject,
		Name:    tc.Name,
		Email:   tc.Email,
		Role:    tc.Role,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time.UTC()
	}
	out.ExpiresAt = tc.ExpiresAt.Time.UTC()
	return out, nil
}

func (c *JWTCodec) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return c.secret, nil
}

func (c *JWTCodec) classify(token string, err error) domain.TokenErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.TokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.TokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed) && c.onlySignatureUndecodable(token):
		return domain.TokenBadSignature
	default:
		return domain.TokenMalformed
	}
}

// onlySignatureUndecodable reports whether header and payload are intact and
// the signature segment alone fails to decode.
func (c *JWTCodec) onlySignatureUndecodable(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, seg := range parts[:2] {
		b, err := c.parser.DecodeSegment(seg)
		if err != nil || !json.Valid(b) {
			return false
		}
	}
	_, err := c.parser.DecodeSegment(parts[2])
	return err != nil
}
