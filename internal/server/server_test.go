package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/config"
)

type datedRequest struct {
	WeekOf string `validate:"required,isodate"`
}

type mealRequest struct {
	MealTypes []string `validate:"dive,mealtype"`
}

func TestValidatorISODate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(datedRequest{WeekOf: "2026-10-12"}))
	assert.Error(t, v.Validate(datedRequest{WeekOf: "2026-10-12T10:00:00Z"}))
	assert.Error(t, v.Validate(datedRequest{WeekOf: "2026-13-01"}))
	assert.Error(t, v.Validate(datedRequest{WeekOf: "12.10.2026"}))
	assert.Error(t, v.Validate(datedRequest{}))
}

func TestValidatorMealType(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(mealRequest{MealTypes: []string{"breakfast", "Lunch", "dinner"}}))
	assert.NoError(t, v.Validate(mealRequest{}))
	assert.Error(t, v.Validate(mealRequest{MealTypes: []string{"dinner", "brunch"}}))
}

func TestRedactQueryToken(t *testing.T) {
	assert.Equal(t, "/api/v1/notifications/stream?access_token=REDACTED", redactQueryToken("/api/v1/notifications/stream?access_token=abc.def"))
	assert.Equal(t, "/stream?access_token=REDACTED&x=1", redactQueryToken("/stream?access_token=abc&x=1"))
	assert.Equal(t, "/api/v1/meal-plans?limit=5", redactQueryToken("/api/v1/meal-plans?limit=5"))
}

func TestNewRegistersRoutes(t *testing.T) {
	cfg := config.Config{}
	cfg.Auth.RateLimitPerMinute = 60
	cfg.Auth.RateLimitBurst = 10
	cfg.AI.RateLimitPerMinute = 6
	cfg.AI.RateLimitBurst = 2

	app := New(cfg, nil, nil, nil)
	require.NotNil(t, app.Echo)

	registered := make(map[string]bool)
	for _, route := range app.Echo.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		http.MethodGet + " /health",
		http.MethodPost + " /api/v1/auth/register",
		http.MethodGet + " /api/v1/auth/me",
		http.MethodPut + " /api/v1/survey",
		http.MethodPost + " /api/v1/meal-plans/generate",
		http.MethodPatch + " /api/v1/meal-plans/:id/status",
		http.MethodGet + " /api/v1/meal-plans/:id/grocery-list/export/csv",
		http.MethodPost + " /api/v1/meal-plans/:id/entries/:entryId/swap",
		http.MethodPut + " /api/v1/recipes/:id/ingredients",
		http.MethodGet + " /api/v1/calendar/google/callback",
		http.MethodDelete + " /api/v1/calendar/connections/:provider",
		http.MethodGet + " /api/v1/notifications/stream",
		http.MethodGet + " /api/v1/admin/usage",
	}
	for _, route := range expected {
		assert.True(t, registered[route], route)
	}
}
