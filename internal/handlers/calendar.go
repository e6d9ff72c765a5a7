package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/calendar"
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

const stateGoogleCalendar = "calendar:google"

type CalendarHandler struct {
	Connections    *repository.CalendarRepository
	Google         *calendar.GoogleOAuth
	Cache          *calendar.Cache
	Tokens         *auth.TokenManager
	AppleServerURL string
	Timeout        time.Duration
	FrontendURL    string
	Location       *time.Location
}

type CalendarHandlerConfig struct {
	AppleServerURL string
	Timeout        time.Duration
	FrontendURL    string
	Location       *time.Location
}

// NewCalendarHandler создает обработчик подключений календарей.
func NewCalendarHandler(connections *repository.CalendarRepository, google *calendar.GoogleOAuth, cache *calendar.Cache, tokens *auth.TokenManager, cfg CalendarHandlerConfig) *CalendarHandler {
	return &CalendarHandler{
		Connections:    connections,
		Google:         google,
		Cache:          cache,
		Tokens:         tokens,
		AppleServerURL: cfg.AppleServerURL,
		Timeout:        cfg.Timeout,
		FrontendURL:    cfg.FrontendURL,
		Location:       cfg.Location,
	}
}

type AppleConnectRequest struct {
	Username    string `json:"username" validate:"required,max=320"`
	AppPassword string `json:"app_password" validate:"required,max=200"`
	ServerURL   string `json:"server_url" validate:"omitempty,url"`
}

type ConnectionResponse struct {
	Provider  models.CalendarProvider `json:"provider"`
	Username  *string                 `json:"username,omitempty"`
	ServerURL *string                 `json:"server_url,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

type EventsResponse struct {
	Start  dates.Date       `json:"start"`
	End    dates.Date       `json:"end"`
	Events []calendar.Event `json:"events"`
	Errors []string         `json:"errors,omitempty"`
}

// ListConnections возвращает подключенные календари пользователя.
func (h *CalendarHandler) ListConnections(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	connections, err := h.Connections.List(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	response := make([]ConnectionResponse, 0, len(connections))
	for _, conn := range connections {
		response = append(response, toConnectionResponse(conn))
	}

	return c.JSON(http.StatusOK, map[string][]ConnectionResponse{"connections": response})
}

// GoogleConnect возвращает адрес согласия Google с подписанным state.
func (h *CalendarHandler) GoogleConnect(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if !h.Google.Enabled() {
		return serviceUnavailable(c, "google calendar is not configured")
	}

	state, err := h.Tokens.NewStateToken(userID, stateGoogleCalendar)
	if err != nil {
		return serverError(c)
	}

	authURL, err := h.Google.AuthCodeURL(state)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"url": authURL})
}

// GoogleCallback завершает OAuth: пользователь определяется по state, а не по access-токену.
func (h *CalendarHandler) GoogleCallback(c echo.Context) error {
	if reason := strings.TrimSpace(c.QueryParam("error")); reason != "" {
		return h.finishOAuth(c, http.StatusBadRequest, reason)
	}

	userID, err := h.Tokens.ParseStateToken(c.QueryParam("state"), stateGoogleCalendar)
	if err != nil {
		return h.finishOAuth(c, http.StatusBadRequest, "invalid state")
	}

	code := strings.TrimSpace(c.QueryParam("code"))
	if code == "" {
		return h.finishOAuth(c, http.StatusBadRequest, "missing code")
	}

	ctx := c.Request().Context()
	token, err := h.Google.Exchange(ctx, code)
	if err != nil {
		slog.Warn("google oauth exchange failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		return h.finishOAuth(c, http.StatusBadGateway, "google authorization failed")
	}

	raw, err := calendar.EncodeToken(token)
	if err != nil {
		return h.finishOAuth(c, http.StatusInternalServerError, "internal server error")
	}

	if _, err := h.Connections.Upsert(ctx, models.CalendarConnection{
		UserID:   userID,
		Provider: models.CalendarProviderGoogle,
		Token:    raw,
	}); err != nil {
		return h.finishOAuth(c, http.StatusInternalServerError, "internal server error")
	}
	h.invalidate(ctx, userID, models.CalendarProviderGoogle)

	slog.Info("calendar connected", slog.String("user_id", userID.String()), slog.String("provider", string(models.CalendarProviderGoogle)))
	return h.finishOAuth(c, http.StatusOK, "")
}

// AppleConnect проверяет пароль приложения через CalDAV и сохраняет подключение.
func (h *CalendarHandler) AppleConnect(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req AppleConnectRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	serverURL := strings.TrimSpace(req.ServerURL)
	if serverURL == "" {
		serverURL = h.AppleServerURL
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.AppPassword)

	provider, err := calendar.NewAppleProvider(serverURL, username, password, h.Timeout)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout())
	defer cancel()
	if err := provider.Verify(ctx); err != nil {
		slog.Warn("caldav verification failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		return badRequest(c, "could not access the calendar with these credentials")
	}

	conn, err := h.Connections.Upsert(c.Request().Context(), models.CalendarConnection{
		UserID:    userID,
		Provider:  models.CalendarProviderApple,
		Username:  &username,
		Secret:    &password,
		ServerURL: &serverURL,
	})
	if err != nil {
		return serverError(c)
	}
	h.invalidate(c.Request().Context(), userID, models.CalendarProviderApple)

	return c.JSON(http.StatusCreated, toConnectionResponse(conn))
}

// DeleteConnection отключает календарь и очищает кэш его событий.
func (h *CalendarHandler) DeleteConnection(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	provider, ok := parseProvider(c.Param("provider"))
	if !ok {
		return badRequest(c, "invalid provider")
	}

	ctx := c.Request().Context()
	if err := h.Connections.Delete(ctx, userID, provider); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "connection not found")
		}
		return serverError(c)
	}
	h.invalidate(ctx, userID, provider)

	return c.NoContent(http.StatusNoContent)
}

// Events возвращает события всех подключенных календарей за [start, end].
// Без параметров берется неделя, начиная с сегодняшнего дня.
func (h *CalendarHandler) Events(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	start, end, err := parseRange(c.QueryParam("start"), c.QueryParam("end"), dates.Today(h.Location))
	if err != nil {
		return badRequest(c, err.Error())
	}

	events, fetchErr := h.FetchEvents(c.Request().Context(), userID, h.startOf(start), h.startOf(end.AddDays(1)))
	response := EventsResponse{Start: start, End: end, Events: events}
	if fetchErr != nil {
		response.Errors = strings.Split(fetchErr.Error(), "\n")
	}

	return c.JSON(http.StatusOK, response)
}

// FetchEvents собирает события всех подключений пользователя через кэш.
// Ошибка одного провайдера не мешает остальным; ошибки объединяются.
func (h *CalendarHandler) FetchEvents(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendar.Event, error) {
	connections, err := h.Connections.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0)
	var errs []error
	for _, conn := range connections {
		provider, err := h.provider(ctx, conn)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", conn.Provider, err))
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, h.timeout())
		found, err := h.Cache.Fetch(fetchCtx, userID, conn.Provider, start, end, func(ctx context.Context) ([]calendar.Event, error) {
			return provider.FetchEvents(ctx, start, end)
		})
		cancel()
		if err != nil {
			slog.Warn("calendar fetch failed", slog.String("user_id", userID.String()), slog.String("provider", string(conn.Provider)), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", conn.Provider, err))
			continue
		}
		events = append(events, found...)
	}

	return events, errors.Join(errs...)
}

// BusyDays считает занятость по дням недели плана.
func (h *CalendarHandler) BusyDays(ctx context.Context, userID uuid.UUID, weekOf dates.Date) ([dates.DaysInWeek]int, error) {
	events, err := h.FetchEvents(ctx, userID, h.startOf(weekOf), h.startOf(weekOf.AddDays(dates.DaysInWeek)))
	return calendar.BusyDays(events, weekOf, h.location()), err
}

func (h *CalendarHandler) provider(ctx context.Context, conn models.CalendarConnection) (calendar.Provider, error) {
	switch conn.Provider {
	case models.CalendarProviderGoogle:
		token, err := calendar.DecodeToken(conn.Token)
		if err != nil {
			return nil, err
		}
		return h.Google.Provider(ctx, token)
	case models.CalendarProviderApple:
		if conn.Username == nil || conn.Secret == nil {
			return nil, errors.New("apple connection has no credentials")
		}
		serverURL := h.AppleServerURL
		if conn.ServerURL != nil {
			serverURL = *conn.ServerURL
		}
		return calendar.NewAppleProvider(serverURL, *conn.Username, *conn.Secret, h.timeout())
	default:
		return nil, fmt.Errorf("unsupported provider %q", conn.Provider)
	}
}

// finishOAuth перенаправляет браузер обратно во фронтенд либо отвечает JSON, если адрес не задан.
func (h *CalendarHandler) finishOAuth(c echo.Context, status int, reason string) error {
	if h.FrontendURL == "" {
		if reason != "" {
			return c.JSON(status, errorResponse{Error: reason})
		}
		return c.JSON(http.StatusOK, map[string]string{"provider": string(models.CalendarProviderGoogle), "status": "connected"})
	}

	return c.Redirect(http.StatusFound, oauthRedirectURL(h.FrontendURL, reason))
}

func (h *CalendarHandler) invalidate(ctx context.Context, userID uuid.UUID, provider models.CalendarProvider) {
	if err := h.Cache.Invalidate(ctx, userID, provider); err != nil {
		slog.Warn("calendar cache invalidation failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
	}
}

func (h *CalendarHandler) startOf(day dates.Date) time.Time {
	t := day.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.location())
}

func (h *CalendarHandler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

func (h *CalendarHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 15 * time.Second
	}
	return h.Timeout
}

func oauthRedirectURL(frontendURL, reason string) string {
	query := url.Values{}
	query.Set("provider", string(models.CalendarProviderGoogle))
	if reason != "" {
		query.Set("error", reason)
	} else {
		query.Set("status", "connected")
	}
	return strings.TrimRight(frontendURL, "/") + "/settings/calendar?" + query.Encode()
}

func parseProvider(value string) (models.CalendarProvider, bool) {
	switch provider := models.CalendarProvider(strings.ToLower(strings.TrimSpace(value))); provider {
	case models.CalendarProviderGoogle, models.CalendarProviderApple:
		return provider, true
	default:
		return "", false
	}
}

// parseRange разбирает границы диапазона (обе включительно); пустые значения дают неделю от fallback.
func parseRange(startRaw, endRaw string, fallback dates.Date) (dates.Date, dates.Date, error) {
	start := fallback
	if strings.TrimSpace(startRaw) != "" {
		parsed, err := dates.Parse(startRaw)
		if err != nil {
			return dates.Date{}, dates.Date{}, errors.New("invalid start")
		}
		start = parsed
	}

	end := dates.WeekEnd(start)
	if strings.TrimSpace(endRaw) != "" {
		parsed, err := dates.Parse(endRaw)
		if err != nil {
			return dates.Date{}, dates.Date{}, errors.New("invalid end")
		}
		end = parsed
	}

	if end.Before(start) {
		return dates.Date{}, dates.Date{}, errors.New("end must not be before start")
	}
	if end.DaysSince(start) > 62 {
		return dates.Date{}, dates.Date{}, errors.New("range is too long")
	}

	return start, end, nil
}

func toConnectionResponse(conn models.CalendarConnection) ConnectionResponse {
	return ConnectionResponse{
		Provider:  conn.Provider,
		Username:  conn.Username,
		ServerURL: conn.ServerURL,
		CreatedAt: conn.CreatedAt,
		UpdatedAt: conn.UpdatedAt,
	}
}
