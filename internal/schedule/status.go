package schedule

import (
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

// EffectiveStatus возвращает статус плана для отображения; сохраненный статус не меняется.
// Ожидающий план считается начатым, если today попадает в его неделю.
func EffectiveStatus(weekOf dates.Date, stored models.MealPlanStatus, today dates.Date) models.MealPlanStatus {
	if stored == models.MealPlanStatusPending && dates.IsDateWithinPlan(weekOf, today) {
		return models.MealPlanStatusInProgress
	}
	return stored
}
