package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

const surveyColumns = "user_id, household_size, dietary_preferences, avoid_ingredients, meals_per_day, max_cook_minutes, notes, updated_at"

type SurveyRepository struct {
	db *pgxpool.Pool
}

// NewSurveyRepository создает репозиторий анкет.
func NewSurveyRepository(db *pgxpool.Pool) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// GetByUser возвращает анкету пользователя.
func (r *SurveyRepository) GetByUser(ctx context.Context, userID uuid.UUID) (models.Survey, error) {
	row := r.db.QueryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE user_id = $1`, userID)
	return scanSurvey(row)
}

// Upsert сохраняет анкету целиком.
func (r *SurveyRepository) Upsert(ctx context.Context, survey models.Survey) (models.Survey, error) {
	mealsPerDay := make([]string, 0, len(survey.MealsPerDay))
	for _, mealType := range survey.MealsPerDay {
		mealsPerDay = append(mealsPerDay, string(mealType))
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO surveys (user_id, household_size, dietary_preferences, avoid_ingredients, meals_per_day, max_cook_minutes, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE
		 SET household_size = EXCLUDED.household_size,
		     dietary_preferences = EXCLUDED.dietary_preferences,
		     avoid_ingredients = EXCLUDED.avoid_ingredients,
		     meals_per_day = EXCLUDED.meals_per_day,
		     max_cook_minutes = EXCLUDED.max_cook_minutes,
		     notes = EXCLUDED.notes,
		     updated_at = NOW()
		 RETURNING `+surveyColumns,
		survey.UserID,
		survey.HouseholdSize,
		nonNilStrings(survey.DietaryPreferences),
		nonNilStrings(survey.AvoidIngredients),
		mealsPerDay,
		survey.MaxCookMinutes,
		survey.Notes,
	)
	return scanSurvey(row)
}

func scanSurvey(row pgx.Row) (models.Survey, error) {
	var survey models.Survey
	var mealsPerDay []string

	err := row.Scan(
		&survey.UserID,
		&survey.HouseholdSize,
		&survey.DietaryPreferences,
		&survey.AvoidIngredients,
		&mealsPerDay,
		&survey.MaxCookMinutes,
		&survey.Notes,
		&survey.UpdatedAt,
	)
	if err != nil {
		return models.Survey{}, mapError(err)
	}

	survey.MealsPerDay = make([]models.MealType, 0, len(mealsPerDay))
	for _, value := range mealsPerDay {
		survey.MealsPerDay = append(survey.MealsPerDay, models.ParseMealType(value))
	}

	return survey, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
