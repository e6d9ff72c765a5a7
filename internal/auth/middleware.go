package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserIDKey = "user_id"
	// QueryTokenParam carries the access token for EventSource clients, which cannot set headers.
	QueryTokenParam = "access_token"
)

type middlewareOptions struct {
	allowQueryToken bool
}

type MiddlewareOption func(*middlewareOptions)

// WithQueryToken разрешает передавать access-токен в параметре access_token.
func WithQueryToken() MiddlewareOption {
	return func(o *middlewareOptions) {
		o.allowQueryToken = true
	}
}

// JWTMiddleware проверяет access-токен и сохраняет user_id в контексте.
func JWTMiddleware(manager *TokenManager, opts ...MiddlewareOption) echo.MiddlewareFunc {
	options := middlewareOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := tokenFromRequest(c, options)
			if err != nil {
				return err
			}

			claims, err := manager.ParseAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(ContextUserIDKey, userID)
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context, options middlewareOptions) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if options.allowQueryToken {
			if token := strings.TrimSpace(c.QueryParam(QueryTokenParam)); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	return tokenString, nil
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextUserIDKey)
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
