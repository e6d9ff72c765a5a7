package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

func TestEffectiveStatusPromotesPendingInsideWindow(t *testing.T) {
	weekOf := dates.MustParse("2024-06-05")

	assert.Equal(t, models.MealPlanStatusInProgress, EffectiveStatus(weekOf, models.MealPlanStatusPending, weekOf))
	assert.Equal(t, models.MealPlanStatusInProgress, EffectiveStatus(weekOf, models.MealPlanStatusPending, dates.MustParse("2024-06-11")))
	assert.Equal(t, models.MealPlanStatusPending, EffectiveStatus(weekOf, models.MealPlanStatusPending, dates.MustParse("2024-06-12")))
	assert.Equal(t, models.MealPlanStatusPending, EffectiveStatus(weekOf, models.MealPlanStatusPending, dates.MustParse("2024-06-04")))
}

// TestEffectiveStatusStable проверяет неизменность завершенных и генерируемых планов.
func TestEffectiveStatusStable(t *testing.T) {
	weekOf := dates.MustParse("2024-06-05")

	for offset := -10; offset <= 10; offset++ {
		today := weekOf.AddDays(offset)
		assert.Equal(t, models.MealPlanStatusCompleted, EffectiveStatus(weekOf, models.MealPlanStatusCompleted, today))
		assert.Equal(t, models.MealPlanStatusGenerating, EffectiveStatus(weekOf, models.MealPlanStatusGenerating, today))
		assert.Equal(t, models.MealPlanStatusInProgress, EffectiveStatus(weekOf, models.MealPlanStatusInProgress, today))
	}
}

func TestEffectiveStatusIdempotent(t *testing.T) {
	weekOf := dates.MustParse("2024-06-05")
	today := dates.MustParse("2024-06-07")

	once := EffectiveStatus(weekOf, models.MealPlanStatusPending, today)
	assert.Equal(t, once, EffectiveStatus(weekOf, once, today))
	assert.Equal(t, models.MealPlanStatus("archived"), EffectiveStatus(weekOf, "archived", today))
}
