package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=255"`
	Role     string `json:"role,omitempty" validate:"max=64"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// userID renders as a JSON number when the store assigned a numeric id
// (Postgres, memory) and as a string otherwise (Mongo ObjectID).
type userID string

func (id userID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      userID `json:"user_id" swaggertype:"integer"`
	Role        string `json:"role"`
	Name        string `json:"name"`
}

type claimsResponse struct {
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	ID        string `json:"jti"`
}

type verifyResponse struct {
	Valid  bool            `json:"valid"`
	User   *claimsResponse `json:"user,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Register creates a new user account and returns its first access token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid_request").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// Login authenticates a user and returns an access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_request").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "invalid_credentials"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// Verify validates a token. It always answers 200; the verdict is in the body.
//
// @Summary      Verify an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  query     string         false  "Access token"
// @Param        body   body      verifyRequest  false  "Access token"
// @Success      200    {object}  verifyResponse
// @Router       /verify [post]
func (h *AuthHandler) Verify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		var req verifyRequest
		if err := c.Bind(&req); err == nil {
			token = req.Token
		}
	}

	verdict := h.authService.Verify(c.Request().Context(), token)

	resp := verifyResponse{Valid: verdict.Valid, Reason: verdict.Reason}
	switch {
	case verdict.Valid:
		resp.User = toClaimsResponse(*verdict.Claims)
		metrics.VerificationsTotal.WithLabelValues("valid").Inc()
	case verdict.Reason == "expired":
		metrics.VerificationsTotal.WithLabelValues("expired").Inc()
	default:
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the claims of the bearer token presented with the request.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  claimsResponse
// @Failure      401  {object}  errorResponse
// @Router       /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toClaimsResponse(claims))
}

func registerResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, domain.ErrPasswordTooLong):
		return "invalid_request"
	default:
		return "error"
	}
}

func toTokenResponse(res *ports.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		UserID:      userID(res.User.ID),
		Role:        res.User.Role,
		Name:        res.User.Name,
	}
}

func toClaimsResponse(c domain.Claims) *claimsResponse {
	return &claimsResponse{
		Subject:   c.Subject,
		Name:      c.Name,
		Email:     c.Email,
		Role:      c.Role,
		IssuedAt:  c.IssuedAt.Unix(),
		ExpiresAt: c.ExpiresAt.Unix(),
		ID:        c.ID,
	}
}

// errorResponse documents the error envelope rendered by the HTTP error handler.
type errorResponse struct {
	Error string `json:"error"`
}
