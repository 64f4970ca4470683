package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

// StoreError wraps an infrastructure failure of the credential store. It
// matches ErrStoreUnavailable so callers never confuse it with a domain
// outcome such as ErrUserNotFound.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err for the named store operation.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// TokenErrorKind classifies why a token was rejected.
type TokenErrorKind int

const (
	TokenMalformed TokenErrorKind = iota + 1
	TokenBadSignature
	TokenExpired
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenBadSignature:
		return "bad signature"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError is returned by token validation.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenErrorKindOf reports the kind of a *TokenError in err's chain, or zero.
func TokenErrorKindOf(err error) TokenErrorKind {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
