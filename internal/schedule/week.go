package schedule

import (
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

type DayBucket struct {
	Date         dates.Date              `json:"date"`
	Weekday      string                  `json:"weekday"`
	WeekdayShort string                  `json:"weekday_short"`
	Breakfast    []models.MealPlanRecipe `json:"breakfast"`
	Lunch        []models.MealPlanRecipe `json:"lunch"`
	Dinner       []models.MealPlanRecipe `json:"dinner"`
}

// Week is a plan laid out on its 7-day window.
type Week struct {
	Days        [dates.DaysInWeek]DayBucket `json:"days"`
	Unscheduled []models.MealPlanRecipe     `json:"unscheduled"`
}

// Organize раскладывает записи плана по 7 дням и трем приемам пищи.
// Записи без даты или с датой вне окна попадают в Unscheduled,
// записи без рецепта отбрасываются.
func Organize(plan models.MealPlan) Week {
	var week Week
	week.Unscheduled = make([]models.MealPlanRecipe, 0)

	for i := range week.Days {
		week.Days[i] = DayBucket{
			Breakfast: make([]models.MealPlanRecipe, 0),
			Lunch:     make([]models.MealPlanRecipe, 0),
			Dinner:    make([]models.MealPlanRecipe, 0),
		}
		// без начала недели у корзин нет дат
		if plan.WeekOf.IsZero() {
			continue
		}
		day := plan.WeekOf.AddDays(i)
		week.Days[i].Date = day
		week.Days[i].Weekday = day.Weekday().String()
		week.Days[i].WeekdayShort = dates.ShortWeekday(day.Weekday())
	}

	for _, entry := range plan.Recipes {
		if entry.Recipe == nil {
			continue
		}

		day, ok := EntryDate(plan.WeekOf, entry)
		if !ok || plan.WeekOf.IsZero() || !dates.IsDateWithinPlan(plan.WeekOf, day) {
			week.Unscheduled = append(week.Unscheduled, entry)
			continue
		}

		bucket := &week.Days[day.DaysSince(plan.WeekOf)]
		switch models.ParseMealType(string(entry.MealType)) {
		case models.MealTypeBreakfast:
			bucket.Breakfast = append(bucket.Breakfast, entry)
		case models.MealTypeLunch:
			bucket.Lunch = append(bucket.Lunch, entry)
		default:
			bucket.Dinner = append(bucket.Dinner, entry)
		}
	}

	return week
}

// EntryDate возвращает дату записи: planned_for_date, иначе день-подсказку в окне недели.
func EntryDate(weekOf dates.Date, entry models.MealPlanRecipe) (dates.Date, bool) {
	if entry.PlannedForDate != nil && !entry.PlannedForDate.IsZero() {
		return *entry.PlannedForDate, true
	}

	if entry.DayHint != "" {
		return dates.ResolveDate(weekOf, entry.DayHint)
	}

	return dates.Date{}, false
}
