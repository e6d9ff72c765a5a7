package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/dates"
)

type MealPlanStatus string

type MealType string

type RecipeSource string

type CalendarProvider string

const (
	MealPlanStatusPending    MealPlanStatus = "pending"
	MealPlanStatusInProgress MealPlanStatus = "in-progress"
	MealPlanStatusCompleted  MealPlanStatus = "completed"
	MealPlanStatusGenerating MealPlanStatus = "generating"

	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"

	RecipeSourceAI       RecipeSource = "ai"
	RecipeSourceUser     RecipeSource = "user"
	RecipeSourceFallback RecipeSource = "fallback"

	CalendarProviderGoogle CalendarProvider = "google"
	CalendarProviderApple  CalendarProvider = "apple"
)

// DefaultPortionMultiplier is used when an occurrence carries no multiplier.
const DefaultPortionMultiplier = 1.0

// ParseMealType приводит тип приема пищи к известному значению; по умолчанию ужин.
func ParseMealType(value string) MealType {
	switch MealType(strings.ToLower(strings.TrimSpace(value))) {
	case MealTypeBreakfast:
		return MealTypeBreakfast
	case MealTypeLunch:
		return MealTypeLunch
	default:
		return MealTypeDinner
	}
}

// ParseMealPlanStatus возвращает статус и признак того, что он известен.
func ParseMealPlanStatus(value string) (MealPlanStatus, bool) {
	status := MealPlanStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case MealPlanStatusPending, MealPlanStatusInProgress, MealPlanStatusCompleted, MealPlanStatusGenerating:
		return status, true
	default:
		return "", false
	}
}

// ResolvePortionMultiplier подставляет множитель по умолчанию для отсутствующего значения.
func ResolvePortionMultiplier(value *float64) float64 {
	if value == nil {
		return DefaultPortionMultiplier
	}
	return *value
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

type Recipe struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Name        string         `json:"name"`
	Ingredients IngredientList `json:"ingredients"`
	Steps       StepList       `json:"steps"`
	MealTypes   []string       `json:"meal_types,omitempty"`
	Source      RecipeSource   `json:"source"`
	ReplacesID  *uuid.UUID     `json:"replaces_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MealPlanRecipe is one occurrence of a recipe inside a plan.
type MealPlanRecipe struct {
	ID                uuid.UUID   `json:"id"`
	MealPlanID        uuid.UUID   `json:"meal_plan_id"`
	RecipeID          uuid.UUID   `json:"recipe_id"`
	Recipe            *Recipe     `json:"recipe,omitempty"`
	PlannedForDate    *dates.Date `json:"planned_for_date"`
	DayHint           string      `json:"day,omitempty"`
	SlotLabel         string      `json:"slot_label,omitempty"`
	MealType          MealType    `json:"meal_type"`
	PortionMultiplier float64     `json:"portion_multiplier"`
	CreatedAt         time.Time   `json:"created_at"`
}

type mealPlanRecipeJSON struct {
	ID                uuid.UUID   `json:"id"`
	MealPlanID        uuid.UUID   `json:"meal_plan_id"`
	RecipeID          uuid.UUID   `json:"recipe_id"`
	Recipe            *Recipe     `json:"recipe,omitempty"`
	PlannedForDate    *dates.Date `json:"planned_for_date"`
	DayHint           string      `json:"day,omitempty"`
	SlotLabel         string      `json:"slot_label,omitempty"`
	MealType          string      `json:"meal_type"`
	PortionMultiplier *float64    `json:"portion_multiplier"`
	CreatedAt         time.Time   `json:"created_at"`
}

// UnmarshalJSON resolves meal type and multiplier defaults on decode.
func (e *MealPlanRecipe) UnmarshalJSON(data []byte) error {
	var raw mealPlanRecipeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	planned := raw.PlannedForDate
	if planned != nil && planned.IsZero() {
		planned = nil
	}

	*e = MealPlanRecipe{
		ID:                raw.ID,
		MealPlanID:        raw.MealPlanID,
		RecipeID:          raw.RecipeID,
		Recipe:            raw.Recipe,
		PlannedForDate:    planned,
		DayHint:           strings.TrimSpace(raw.DayHint),
		SlotLabel:         raw.SlotLabel,
		MealType:          ParseMealType(raw.MealType),
		PortionMultiplier: ResolvePortionMultiplier(raw.PortionMultiplier),
		CreatedAt:         raw.CreatedAt,
	}
	return nil
}

type AIGroceryItem struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
}

type MealPlan struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	WeekOf        dates.Date       `json:"week_of"`
	Status        MealPlanStatus   `json:"status"`
	AIGroceryList []AIGroceryItem  `json:"ai_grocery_list,omitempty"`
	Recipes       []MealPlanRecipe `json:"recipes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CalculatedGroceryItem is one aggregated grocery row; recomputed on every read.
type CalculatedGroceryItem struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

type Survey struct {
	UserID             uuid.UUID  `json:"user_id"`
	HouseholdSize      int        `json:"household_size"`
	DietaryPreferences []string   `json:"dietary_preferences"`
	AvoidIngredients   []string   `json:"avoid_ingredients"`
	MealsPerDay        []MealType `json:"meals_per_day"`
	MaxCookMinutes     int        `json:"max_cook_minutes"`
	Notes              *string    `json:"notes,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type CalendarConnection struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Provider  CalendarProvider `json:"provider"`
	Token     json.RawMessage  `json:"-"`
	Username  *string          `json:"username,omitempty"`
	Secret    *string          `json:"-"`
	ServerURL *string          `json:"server_url,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
