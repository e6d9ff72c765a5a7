package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/ai-meal-planner/backend/internal/calendar"
	"example.com/ai-meal-planner/backend/internal/config"
	"example.com/ai-meal-planner/backend/internal/database"
	"example.com/ai-meal-planner/backend/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.MigrateDSN()); err != nil {
			logger.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		db.Close()
	}()

	eventCache, err := calendar.NewCache(context.Background(), cfg.Redis.URL, cfg.Redis.CalendarTTL)
	if err != nil {
		// без Redis календарь работает напрямую через провайдеров
		logger.Warn("calendar cache disabled", slog.String("error", err.Error()))
		eventCache = &calendar.Cache{}
	}
	defer func() {
		if err := eventCache.Close(); err != nil {
			logger.Warn("failed to close calendar cache", slog.String("error", err.Error()))
		}
	}()

	app := server.New(cfg, logger, db, eventCache)
	httpServer := server.NewHTTPServer(cfg.Server, app.Echo)

	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr))
		if err := app.Echo.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Echo.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}

	if err := app.WaitBackground(shutdownCtx); err != nil {
		logger.Warn("meal plan generations still running", slog.String("error", err.Error()))
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
