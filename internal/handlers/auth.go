package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

var errInvalidRefresh = errors.New("invalid refresh token")

type AuthHandler struct {
	Users        *repository.UserRepository
	Tokens       *repository.RefreshTokenRepository
	Surveys      *repository.SurveyRepository
	TokenManager *auth.TokenManager
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users *repository.UserRepository, tokens *repository.RefreshTokenRepository, surveys *repository.SurveyRepository, manager *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		Surveys:      surveys,
		TokenManager: manager,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

// UserResponse also tells the client whether onboarding (the survey) is done.
type UserResponse struct {
	User            AuthUser `json:"user"`
	SurveyCompleted bool     `json:"survey_completed"`
}

// Register регистрирует пользователя и выдает токены.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	passwordHash, err := auth.HashPassword(strings.TrimSpace(req.Password))
	if err != nil {
		return serverError(c)
	}

	user, err := h.Users.Create(c.Request().Context(), normalizeEmail(req.Email), passwordHash, trimmedOrNil(req.Name))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "user already exists")
		}
		return serverError(c)
	}

	response, err := h.issueTokens(c.Request().Context(), user)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login выполняет вход и выдает токены.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	user, err := h.Users.GetByEmail(c.Request().Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	if err = auth.ComparePassword(user.PasswordHash, strings.TrimSpace(req.Password)); err != nil {
		return unauthorized(c)
	}

	response, err := h.issueTokens(c.Request().Context(), user)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, response)
}

// Refresh обновляет токены по refresh-токену; старый токен отзывается.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	stored, err := h.storedRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, errInvalidRefresh) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	user, err := h.Users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	newRefreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, newRefreshID)
	if err != nil {
		return serverError(c)
	}

	if err := h.Tokens.Rotate(ctx, stored.ID, refreshRecord(user.ID, newRefreshID, pair)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	})
}

// Logout отзывает refresh-токен. Повторный выход не считается ошибкой.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}

	refreshID, err := uuid.Parse(claims.ID)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.Tokens.Revoke(c.Request().Context(), refreshID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "user not found")
		}
		return serverError(c)
	}

	completed := true
	if _, err := h.Surveys.GetByUser(ctx, userID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return serverError(c)
		}
		completed = false
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user), SurveyCompleted: completed})
}

// storedRefreshToken проверяет подпись, срок и хэш refresh-токена.
func (h *AuthHandler) storedRefreshToken(ctx context.Context, raw string) (models.RefreshToken, error) {
	claims, err := h.TokenManager.ParseRefreshToken(raw)
	if err != nil {
		return models.RefreshToken{}, errInvalidRefresh
	}

	refreshID, err := uuid.Parse(claims.ID)
	if err != nil {
		return models.RefreshToken{}, errInvalidRefresh
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.RefreshToken{}, errInvalidRefresh
	}

	stored, err := h.Tokens.GetByID(ctx, refreshID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.RefreshToken{}, errInvalidRefresh
		}
		return models.RefreshToken{}, err
	}

	switch {
	case stored.RevokedAt != nil, time.Now().After(stored.ExpiresAt):
		return models.RefreshToken{}, errInvalidRefresh
	case stored.UserID != userID:
		return models.RefreshToken{}, errInvalidRefresh
	case !auth.CompareTokenHash(stored.TokenHash, raw):
		return models.RefreshToken{}, errInvalidRefresh
	}

	return stored, nil
}

func (h *AuthHandler) issueTokens(ctx context.Context, user models.User) (AuthResponse, error) {
	refreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, refreshID)
	if err != nil {
		return AuthResponse{}, err
	}

	if err := h.Tokens.Create(ctx, refreshRecord(user.ID, refreshID, pair)); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	}, nil
}

func refreshRecord(userID, refreshID uuid.UUID, pair auth.TokenPair) models.RefreshToken {
	return models.RefreshToken{
		ID:        refreshID,
		UserID:    userID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
