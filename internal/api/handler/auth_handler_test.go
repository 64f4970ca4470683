package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/auth"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	verifyFn   func(ctx context.Context, token string) ports.Verdict
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Verify(ctx context.Context, token string) ports.Verdict {
	return s.verifyFn(ctx, token)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func result(id, name, role string) *ports.AuthResult {
	return &ports.AuthResult{
		AccessToken: "signed.token.value",
		TokenType:   ports.TokenTypeBearer,
		User:        &domain.User{ID: id, Name: name, Email: "alice@example.com", Role: role},
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.Password != "s3cret!" || in.Name != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Role != "" {
				t.Fatalf("role should be left for the service to default, got %q", in.Role)
			}
			return result("1", "Alice", domain.RoleCustomer), nil
		},
	}
	h := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/register",
		`{"email":"alice@example.com","password":"s3cret!","name":"Alice"}`), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["access_token"] != "signed.token.value" || resp["token_type"] != "bearer" {
		t.Fatalf("unexpected token fields: %v", resp)
	}
	if resp["user_id"] != float64(1) || resp["role"] != "customer" || resp["name"] != "Alice" {
		t.Fatalf("unexpected user fields: %v", resp)
	}
	if _, leaked := resp["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestAuthHandler_UserIDEncoding(t *testing.T) {
	cases := []struct {
		name string
		id   string
		want any
	}{
		{"bigserial", "9007199254", float64(9007199254)},
		{"object id", "65f1c0ffee0123456789abcd", "65f1c0ffee0123456789abcd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				loginFn: func(context.Context, string, string) (*ports.AuthResult, error) {
					return result(tc.id, "Alice", domain.RoleCustomer), nil
				},
			})

			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/login",
				`{"email":"alice@example.com","password":"pw"}`), rec)
			if err := h.Login(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if got := decode(t, rec)["user_id"]; got != tc.want {
				t.Fatalf("expected user_id %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/register", `{`), httptest.NewRecorder())

	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Register_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"password":"p","name":"Alice"}`, "email is required"},
		{"bad email", `{"email":"nope","password":"p","name":"Alice"}`, "email must be a valid email"},
		{"missing password", `{"email":"a@example.com","name":"Alice"}`, "password is required"},
		{"missing name", `{"email":"a@example.com","password":"p"}`, "name is required"},
		{"long name", `{"email":"a@example.com","password":"p","name":"` + strings.Repeat("n", 256) + `"}`, "name must be at most 255"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
					t.Fatalf("service must not be called")
					return nil, nil
				},
			})

			c := e.NewContext(jsonRequest(http.MethodPost, "/register", tc.body), httptest.NewRecorder())

			err := h.Register(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422 HTTPError, got %v", err)
			}
			if msg, _ := he.Message.(string); !strings.Contains(msg, tc.want) {
				t.Fatalf("expected message containing %q, got %q", tc.want, msg)
			}
		})
	}
}

func TestAuthHandler_Register_PassesServiceErrorThrough(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrEmailTaken
		},
	})

	c := e.NewContext(jsonRequest(http.MethodPost, "/register",
		`{"email":"alice@example.com","password":"p","name":"Alice"}`), httptest.NewRecorder())

	if err := h.Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "s3cret!" {
				t.Fatalf("unexpected credentials: %s %s", email, password)
			}
			return result("7", "Alice", "admin"), nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login",
		`{"email":"alice@example.com","password":"s3cret!"}`), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["user_id"] != float64(7) || resp["role"] != "admin" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	})

	c := e.NewContext(jsonRequest(http.MethodPost, "/login",
		`{"email":"alice@example.com","password":"wrong"}`), httptest.NewRecorder())

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com"}`), httptest.NewRecorder())

	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Verify_TokenSources(t *testing.T) {
	exp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	claims := &domain.Claims{
		ID:        "jti-1",
		Subject:   "1",
		Name:      "Alice",
		Email:     "alice@example.com",
		Role:      domain.RoleCustomer,
		IssuedAt:  exp.Add(-time.Hour),
		ExpiresAt: exp,
	}

	cases := []struct {
		name string
		req  *http.Request
	}{
		{"query", httptest.NewRequest(http.MethodPost, "/verify?token=abc", nil)},
		{"body", jsonRequest(http.MethodPost, "/verify", `{"token":"abc"}`)},
		{"query wins over body", jsonRequest(http.MethodPost, "/verify?token=abc", `{"token":"other"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				verifyFn: func(_ context.Context, token string) ports.Verdict {
					if token != "abc" {
						t.Fatalf("expected token abc, got %q", token)
					}
					return ports.Verdict{Valid: true, Claims: claims}
				},
			})

			rec := httptest.NewRecorder()
			if err := h.Verify(e.NewContext(tc.req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			resp := decode(t, rec)
			if resp["valid"] != true {
				t.Fatalf("expected valid verdict, got %v", resp)
			}
			user, ok := resp["user"].(map[string]any)
			if !ok {
				t.Fatalf("expected user object, got %v", resp["user"])
			}
			if user["sub"] != "1" || user["email"] != "alice@example.com" || user["jti"] != "jti-1" {
				t.Fatalf("unexpected user: %v", user)
			}
			if user["exp"] != float64(exp.Unix()) {
				t.Fatalf("expected exp %d, got %v", exp.Unix(), user["exp"])
			}
		})
	}
}

func TestAuthHandler_Verify_InvalidIsStill200(t *testing.T) {
	for _, reason := range []string{"expired", "signature verification failed", "token is malformed"} {
		t.Run(reason, func(t *testing.T) {
			e := newEcho()
			h := NewAuthHandler(&stubAuthService{
				verifyFn: func(context.Context, string) ports.Verdict {
					return ports.Verdict{Reason: reason}
				},
			})

			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/verify?token=x", nil), rec)
			if err := h.Verify(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			resp := decode(t, rec)
			if resp["valid"] != false || resp["reason"] != reason {
				t.Fatalf("unexpected verdict: %v", resp)
			}
			if _, ok := resp["user"]; ok {
				t.Fatalf("invalid verdict must not carry a user")
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	codec, err := auth.NewJWTCodec("handler-test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	token, _, err := codec.Issue(domain.Claims{Subject: "9", Email: "bob@example.com", Role: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	e := newEcho()
	h := NewAuthHandler(&stubAuthService{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()

	if err := middleware.Auth(codec)(h.Me)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["sub"] != "9" || resp["role"] != "admin" {
		t.Fatalf("unexpected claims: %v", resp)
	}
}

func TestAuthHandler_Me_WithoutMiddleware(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{})

	err := h.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
