package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *TokenManager {
	return NewTokenManager("secret", "meal-planner", time.Minute, time.Hour, time.Minute)
}

// TestTokenTypesAreNotInterchangeable проверяет, что токены разных типов не подменяют друг друга.
func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	manager := newTestManager()
	userID := uuid.New()

	pair, err := manager.NewTokenPair(userID, uuid.New())
	require.NoError(t, err)

	claims, err := manager.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)

	_, err = manager.ParseAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenType)

	state, err := manager.NewStateToken(userID, "calendar:google")
	require.NoError(t, err)
	_, err = manager.ParseAccessToken(state)
	assert.ErrorIs(t, err, ErrTokenType)
}

func TestStateToken(t *testing.T) {
	manager := newTestManager()
	userID := uuid.New()

	state, err := manager.NewStateToken(userID, "calendar:google")
	require.NoError(t, err)

	parsed, err := manager.ParseStateToken(state, "calendar:google")
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)

	_, err = manager.ParseStateToken(state, "calendar:apple")
	assert.Error(t, err)

	other := NewTokenManager("other", "meal-planner", time.Minute, time.Hour, time.Minute)
	_, err = other.ParseStateToken(state, "calendar:google")
	assert.Error(t, err)
}

func TestSecrets(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	tokenHash := HashToken("refresh")
	assert.Len(t, tokenHash, 64)
	assert.True(t, CompareTokenHash(tokenHash, "refresh"))
	assert.False(t, CompareTokenHash(tokenHash, "other"))
}

func runMiddleware(t *testing.T, manager *TokenManager, req *http.Request, opts ...MiddlewareOption) (uuid.UUID, error) {
	t.Helper()

	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())

	var got uuid.UUID
	handler := JWTMiddleware(manager, opts...)(func(c echo.Context) error {
		got, _ = UserIDFromContext(c)
		return nil
	})
	return got, handler(c)
}

func TestJWTMiddleware(t *testing.T) {
	manager := newTestManager()
	userID := uuid.New()
	pair, err := manager.NewTokenPair(userID, uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	got, err := runMiddleware(t, manager, req)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, err = runMiddleware(t, manager, req)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	_, err = runMiddleware(t, manager, req)
	assert.Error(t, err)
}

// TestJWTMiddlewareQueryToken проверяет передачу токена в query только при явном разрешении.
func TestJWTMiddlewareQueryToken(t *testing.T) {
	manager := newTestManager()
	userID := uuid.New()
	pair, err := manager.NewTokenPair(userID, uuid.New())
	require.NoError(t, err)

	target := "/stream?" + QueryTokenParam + "=" + pair.AccessToken

	_, err = runMiddleware(t, manager, httptest.NewRequest(http.MethodGet, target, nil))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	got, err := runMiddleware(t, manager, httptest.NewRequest(http.MethodGet, target, nil), WithQueryToken())
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
