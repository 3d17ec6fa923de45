package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"psycheos-gateway/pkg/contextkeys"
	apperrors "psycheos-gateway/pkg/errors"
	"psycheos-gateway/pkg/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware authenticates the REST API's one caller — the Pro bot's
// backing host process — with a service-to-service JWT. There is no
// end-user identity or permission model behind this boundary: see spec
// Non-goals ("end-user authentication beyond the Telegram identifier").
type AuthMiddleware struct {
	jwt service.JWTService
}

func NewAuthMiddleware(jwtSvc service.JWTService) *AuthMiddleware {
	if jwtSvc == nil {
		log.Fatal("[NewAuthMiddleware] FATAL: Экземпляр JWTService не может быть nil!")
	}
	return &AuthMiddleware{jwt: jwtSvc}
}

func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.extractTokenClaims(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}

		if claims.CallerID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": apperrors.ErrInvalidToken.Error()})
		}

		ctx := context.WithValue(c.Request().Context(), contextkeys.CallerIDKey, claims.CallerID)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

func (m *AuthMiddleware) extractTokenClaims(c echo.Context) (*service.JwtCustomClaim, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperrors.ErrEmptyAuthHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.ErrInvalidAuthHeader
	}

	tokenString := parts[1]
	if tokenString == "" {
		return nil, apperrors.ErrTokenNotFound
	}

	claims, err := m.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotAccess
	}

	return claims, nil
}
