package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/grocery"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

const defaultHouseholdSize = 2

type SurveyHandler struct {
	Surveys    *repository.SurveyRepository
	Vocabulary *grocery.Vocabulary
}

// NewSurveyHandler создает обработчик анкеты предпочтений.
func NewSurveyHandler(surveys *repository.SurveyRepository, vocabulary *grocery.Vocabulary) *SurveyHandler {
	return &SurveyHandler{Surveys: surveys, Vocabulary: vocabulary}
}

type SurveyRequest struct {
	HouseholdSize      int      `json:"household_size" validate:"required,min=1,max=20"`
	DietaryPreferences []string `json:"dietary_preferences" validate:"max=20,dive,max=50"`
	AvoidIngredients   []string `json:"avoid_ingredients" validate:"max=50,dive,max=50"`
	MealsPerDay        []string `json:"meals_per_day" validate:"required,min=1,max=3,dive,mealtype"`
	MaxCookMinutes     int      `json:"max_cook_minutes" validate:"min=0,max=600"`
	Notes              *string  `json:"notes" validate:"omitempty,max=1000"`
}

// Get возвращает анкету пользователя.
func (h *SurveyHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	survey, err := h.Surveys.GetByUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "survey not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, survey)
}

// Put сохраняет анкету. Исключаемые ингредиенты должны быть в словаре.
func (h *SurveyHandler) Put(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SurveyRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	avoid := cleanList(req.AvoidIngredients)
	if unknown := h.Vocabulary.Unknown(avoid); len(unknown) > 0 {
		return badRequest(c, "unknown ingredients", unknown...)
	}

	survey, err := h.Surveys.Upsert(c.Request().Context(), models.Survey{
		UserID:             userID,
		HouseholdSize:      req.HouseholdSize,
		DietaryPreferences: cleanList(req.DietaryPreferences),
		AvoidIngredients:   avoid,
		MealsPerDay:        parseMealTypes(req.MealsPerDay),
		MaxCookMinutes:     req.MaxCookMinutes,
		Notes:              trimmedOrNil(req.Notes),
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid survey")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, survey)
}

// defaultSurvey используется для генерации, пока пользователь не заполнил анкету.
func defaultSurvey(userID uuid.UUID) models.Survey {
	return models.Survey{
		UserID:        userID,
		HouseholdSize: defaultHouseholdSize,
		MealsPerDay:   []models.MealType{models.MealTypeDinner},
	}
}

func toSurveyInput(survey models.Survey) ai.SurveyInput {
	meals := make([]string, 0, len(survey.MealsPerDay))
	for _, mealType := range survey.MealsPerDay {
		meals = append(meals, string(mealType))
	}
	if len(meals) == 0 {
		meals = append(meals, string(models.MealTypeDinner))
	}

	input := ai.SurveyInput{
		HouseholdSize:      survey.HouseholdSize,
		DietaryPreferences: survey.DietaryPreferences,
		AvoidIngredients:   survey.AvoidIngredients,
		MealsPerDay:        meals,
		MaxCookMinutes:     survey.MaxCookMinutes,
	}
	if survey.Notes != nil {
		input.Notes = *survey.Notes
	}
	if input.HouseholdSize <= 0 {
		input.HouseholdSize = defaultHouseholdSize
	}

	return input
}

// parseMealTypes приводит типы к известным значениям без повторов.
func parseMealTypes(values []string) []models.MealType {
	seen := make(map[models.MealType]struct{}, len(values))
	out := make([]models.MealType, 0, len(values))
	for _, value := range values {
		mealType := models.ParseMealType(value)
		if _, exists := seen[mealType]; exists {
			continue
		}
		seen[mealType] = struct{}{}
		out = append(out, mealType)
	}
	return out
}

// cleanList обрезает пробелы, приводит к нижнему регистру и убирает пустые и повторы.
func cleanList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
