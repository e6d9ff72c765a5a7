package server

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор на базе go-playground/validator
// с тегами isodate (YYYY-MM-DD) и mealtype.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("mealtype", validateMealType)
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func validateISODate(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if len(value) != len(dates.Layout) {
		return false
	}
	_, err := dates.Parse(value)
	return err == nil
}

// validateMealType принимает только известные типы; ParseMealType здесь не подходит, он подставляет ужин.
func validateMealType(fl validator.FieldLevel) bool {
	switch models.MealType(strings.ToLower(strings.TrimSpace(fl.Field().String()))) {
	case models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner:
		return true
	default:
		return false
	}
}
