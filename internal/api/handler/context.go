package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// ctxClaims extracts the claims injected by the Auth middleware. Absent
// claims mean the route was mounted without the middleware; reject with 401
// rather than serve an anonymous identity.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.Subject == "" {
		return domain.Claims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
