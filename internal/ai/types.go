package ai

import "example.com/ai-meal-planner/backend/internal/models"

type SurveyInput struct {
	HouseholdSize      int      `json:"household_size"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	AvoidIngredients   []string `json:"avoid_ingredients,omitempty"`
	MealsPerDay        []string `json:"meals_per_day"`
	MaxCookMinutes     int      `json:"max_cook_minutes,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// DayInput describes one day of the plan window as seen by the model.
type DayInput struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	BusyEvents int    `json:"busy_events"`
}

type MealPlanInput struct {
	WeekOf          string      `json:"week_of"`
	Days            []DayInput  `json:"days"`
	Survey          SurveyInput `json:"survey"`
	FavoriteRecipes []string    `json:"favorite_recipes,omitempty"`
}

// RecipeDraft is a recipe proposed by the model; ID is the model's own reference, not a stored id.
type RecipeDraft struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Ingredients models.IngredientList `json:"ingredients"`
	Steps       models.StepList       `json:"steps"`
	MealTypes   []string              `json:"meal_types,omitempty"`
}

type ScheduleEntry struct {
	SlotLabel         string   `json:"slot_label"`
	Day               string   `json:"day"`
	MealType          string   `json:"meal_type"`
	RecipeID          string   `json:"recipe_id"`
	PortionMultiplier *float64 `json:"portion_multiplier,omitempty"`
}

type GroceryItem struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
}

type MealPlanResponse struct {
	Recipes     []RecipeDraft   `json:"recipes"`
	Schedule    []ScheduleEntry `json:"schedule"`
	GroceryList []GroceryItem   `json:"grocery_list"`
}

type SwapInput struct {
	Survey   SurveyInput `json:"survey"`
	MealType string      `json:"meal_type"`
	Current  RecipeDraft `json:"current_recipe"`
	// названия рецептов, которые уже есть в плане
	Exclude []string `json:"exclude,omitempty"`
}

type SwapResponse struct {
	Recipe RecipeDraft `json:"recipe"`
}
