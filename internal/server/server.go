package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/calendar"
	"example.com/ai-meal-planner/backend/internal/checkout"
	"example.com/ai-meal-planner/backend/internal/config"
	"example.com/ai-meal-planner/backend/internal/grocery"
	"example.com/ai-meal-planner/backend/internal/handlers"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/repository"
)

// Server is the Echo app plus the background work it owns.
type Server struct {
	Echo      *echo.Echo
	generator *handlers.GenerateHandler
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, eventCache *calendar.Cache) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.StateTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	planRepo := repository.NewMealPlanRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	notificationHub := notifications.NewHub()
	vocabulary := grocery.DefaultVocabulary()
	aiService := ai.NewService(newAIClient(cfg.AI))
	aiRecorder := handlers.NewAIRecorder(aiRepo, cfg.AI.Provider, cfg.AI.Model)
	googleOAuth := calendar.NewGoogleOAuth(cfg.Calendar.GoogleClientID, cfg.Calendar.GoogleClientSecret, cfg.Calendar.GoogleRedirectURL)
	checkoutClient := checkout.NewClient(cfg.Checkout.BaseURL, cfg.Checkout.APIKey, cfg.Checkout.Timeout)

	calendarHandler := handlers.NewCalendarHandler(calendarRepo, googleOAuth, eventCache, tokenManager, handlers.CalendarHandlerConfig{
		AppleServerURL: cfg.Calendar.AppleServerURL,
		Timeout:        cfg.Calendar.Timeout,
		FrontendURL:    cfg.App.FrontendURL,
		Location:       cfg.App.Location,
	})
	generateHandler := handlers.NewGenerateHandler(planRepo, recipeRepo, surveyRepo, aiService, calendarHandler, aiRecorder, notificationHub, cfg.AI.GenerationTimeout, cfg.App.Location)

	registerRoutes(e,
		routeHandlers{
			health:        handlers.NewHealthHandler(db),
			auth:          handlers.NewAuthHandler(userRepo, tokenRepo, surveyRepo, tokenManager),
			survey:        handlers.NewSurveyHandler(surveyRepo, vocabulary),
			mealPlans:     handlers.NewMealPlanHandler(planRepo, notificationHub, cfg.App.Location),
			generate:      generateHandler,
			grocery:       handlers.NewGroceryHandler(planRepo, vocabulary, checkoutClient),
			entries:       handlers.NewEntryHandler(planRepo, recipeRepo, surveyRepo, aiService, aiRecorder, notificationHub),
			recipes:       handlers.NewRecipeHandler(recipeRepo, planRepo, notificationHub),
			calendar:      calendarHandler,
			notifications: handlers.NewNotificationHandler(notificationHub),
			admin:         handlers.NewAdminHandler(adminRepo, aiRepo),
		},
		routeMiddleware{
			auth:        auth.JWTMiddleware(tokenManager),
			streamAuth:  auth.JWTMiddleware(tokenManager, auth.WithQueryToken()),
			admin:       handlers.AdminMiddleware(userRepo, cfg.Admin.Emails),
			authLimiter: rateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
			aiLimiter:   rateLimiter(cfg.AI.RateLimitPerMinute, cfg.AI.RateLimitBurst),
		},
	)

	return &Server{Echo: e, generator: generateHandler}
}

// WaitBackground ждет фоновые генерации планов при остановке.
func (s *Server) WaitBackground(ctx context.Context) error {
	return s.generator.Wait(ctx)
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func newAIClient(cfg config.AIConfig) ai.Client {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return ai.NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	default:
		return ai.NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				// токен SSE в query не должен попадать в логи
				slog.String("uri", redactQueryToken(v.URI)),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if userID, ok := auth.UserIDFromContext(c); ok {
				attrs = append(attrs, slog.String("user_id", userID.String()))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

// rateLimiter ограничивает запросы по пользователю, а для анонимных запросов по IP.
func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := auth.UserIDFromContext(c); ok {
				return "user:" + userID.String(), nil
			}
			return "ip:" + c.RealIP(), nil
		},
	})
}

func redactQueryToken(uri string) string {
	marker := auth.QueryTokenParam + "="
	start := strings.Index(uri, marker)
	if start < 0 {
		return uri
	}

	valueStart := start + len(marker)
	end := strings.IndexByte(uri[valueStart:], '&')
	if end < 0 {
		return uri[:valueStart] + "REDACTED"
	}
	return uri[:valueStart] + "REDACTED" + uri[valueStart+end:]
}
