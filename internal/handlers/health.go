package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB pinger
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewHealthHandler создает обработчик проверки состояния.
func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health возвращает статус сервиса и доступность базы данных.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unavailable"})
		}
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
