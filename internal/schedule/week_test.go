package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

func datePtr(value string) *dates.Date {
	d := dates.MustParse(value)
	return &d
}

// TestOrganizeAlwaysSevenDays проверяет семь корзин даже для пустого плана.
func TestOrganizeAlwaysSevenDays(t *testing.T) {
	week := Organize(models.MealPlan{WeekOf: dates.MustParse("2024-06-05")})

	require.Len(t, week.Days, 7)
	assert.Empty(t, week.Unscheduled)
	assert.Equal(t, "2024-06-05", week.Days[0].Date.String())
	assert.Equal(t, "Wednesday", week.Days[0].Weekday)
	assert.Equal(t, "Wed", week.Days[0].WeekdayShort)
	assert.Equal(t, "2024-06-11", week.Days[6].Date.String())
	assert.Equal(t, "Tue", week.Days[6].WeekdayShort)

	for _, day := range week.Days {
		assert.NotNil(t, day.Breakfast)
		assert.NotNil(t, day.Lunch)
		assert.NotNil(t, day.Dinner)
	}
}

func TestOrganizeZeroWeekLeavesDatesEmpty(t *testing.T) {
	plan := models.MealPlan{Recipes: []models.MealPlanRecipe{
		{Recipe: &models.Recipe{Name: "soup"}, DayHint: "Monday"},
	}}

	week := Organize(plan)

	for _, day := range week.Days {
		assert.True(t, day.Date.IsZero())
		assert.Empty(t, day.Weekday)
		assert.Empty(t, day.WeekdayShort)
		assert.NotNil(t, day.Dinner)
	}
	assert.Len(t, week.Unscheduled, 1)
}

func TestOrganizeLasagnaWeek(t *testing.T) {
	lasagna := &models.Recipe{Name: "lasagna", Ingredients: models.IngredientList{{Item: "cheese", Quantity: "1 cup"}}}
	plan := models.MealPlan{
		WeekOf: dates.MustParse("2024-01-01"),
		Recipes: []models.MealPlanRecipe{
			{Recipe: lasagna, PlannedForDate: datePtr("2024-01-01"), MealType: models.MealTypeDinner, PortionMultiplier: 1},
			{Recipe: lasagna, PlannedForDate: datePtr("2024-01-03"), MealType: models.MealTypeLunch, PortionMultiplier: 2},
		},
	}

	week := Organize(plan)

	require.Len(t, week.Days[0].Dinner, 1)
	assert.Equal(t, 1.0, week.Days[0].Dinner[0].PortionMultiplier)
	assert.Equal(t, "Monday", week.Days[0].Weekday)

	require.Len(t, week.Days[2].Lunch, 1)
	assert.Equal(t, 2.0, week.Days[2].Lunch[0].PortionMultiplier)
	assert.Equal(t, "Wednesday", week.Days[2].Weekday)
	assert.Empty(t, week.Unscheduled)
}

func TestOrganizeMealTypeDefaults(t *testing.T) {
	r := &models.Recipe{Name: "oats"}
	plan := models.MealPlan{
		WeekOf: dates.MustParse("2024-01-01"),
		Recipes: []models.MealPlanRecipe{
			{Recipe: r, PlannedForDate: datePtr("2024-01-02"), MealType: "BREAKFAST"},
			{Recipe: r, PlannedForDate: datePtr("2024-01-02"), MealType: ""},
			{Recipe: r, PlannedForDate: datePtr("2024-01-02"), MealType: "supper"},
			{Recipe: r, PlannedForDate: datePtr("2024-01-02"), MealType: " Lunch"},
		},
	}

	day := Organize(plan).Days[1]
	assert.Len(t, day.Breakfast, 1)
	assert.Len(t, day.Lunch, 1)
	assert.Len(t, day.Dinner, 2)
}

func TestOrganizeUnscheduledAndDropped(t *testing.T) {
	r := &models.Recipe{Name: "stew"}
	plan := models.MealPlan{
		WeekOf: dates.MustParse("2024-06-05"),
		Recipes: []models.MealPlanRecipe{
			{Recipe: r},
			{Recipe: r, DayHint: "someday"},
			{Recipe: r, PlannedForDate: datePtr("2024-06-20")},
			{Recipe: nil, PlannedForDate: datePtr("2024-06-05")},
			{Recipe: r, DayHint: "Monday", MealType: models.MealTypeLunch},
		},
	}

	week := Organize(plan)

	assert.Len(t, week.Unscheduled, 3)
	require.Len(t, week.Days[5].Lunch, 1)
	assert.Equal(t, "2024-06-10", week.Days[5].Date.String())

	total := len(week.Unscheduled)
	for _, day := range week.Days {
		total += len(day.Breakfast) + len(day.Lunch) + len(day.Dinner)
	}
	assert.Equal(t, 4, total)
}

// TestOrganizeDateWithTimeComponent проверяет, что дата со временем попадает в тот же день.
func TestOrganizeDateWithTimeComponent(t *testing.T) {
	var entries []models.MealPlanRecipe
	require.NoError(t, json.Unmarshal([]byte(`[
		{"planned_for_date": "2024-01-03", "meal_type": "dinner"},
		{"planned_for_date": "2024-01-03T00:00:00.000Z", "meal_type": "dinner"},
		{"planned_for_date": "2024-01-03T23:00:00-05:00"}
	]`), &entries))

	r := &models.Recipe{Name: "tacos"}
	for i := range entries {
		entries[i].Recipe = r
	}

	week := Organize(models.MealPlan{WeekOf: dates.MustParse("2024-01-01"), Recipes: entries})
	assert.Len(t, week.Days[2].Dinner, 3)
}

func TestOrganizeKeepsInputOrder(t *testing.T) {
	a := &models.Recipe{Name: "a"}
	b := &models.Recipe{Name: "b"}
	plan := models.MealPlan{
		WeekOf: dates.MustParse("2024-01-01"),
		Recipes: []models.MealPlanRecipe{
			{Recipe: b, PlannedForDate: datePtr("2024-01-04")},
			{Recipe: a, PlannedForDate: datePtr("2024-01-04")},
		},
	}

	dinner := Organize(plan).Days[3].Dinner
	require.Len(t, dinner, 2)
	assert.Equal(t, "b", dinner[0].Recipe.Name)
	assert.Equal(t, "a", dinner[1].Recipe.Name)
}
