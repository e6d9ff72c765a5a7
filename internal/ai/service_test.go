package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	content  string
	err      error
	messages []Message
}

func (s *stubClient) Chat(_ context.Context, messages []Message) (string, []byte, error) {
	s.messages = messages
	return s.content, []byte(`{"raw":true}`), s.err
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`Here you go: {"a":1} enjoy`))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON("   "))
}

// TestGenerateMealPlanDropsUnknownRecipes проверяет отбрасывание записей с неизвестным рецептом.
func TestGenerateMealPlanDropsUnknownRecipes(t *testing.T) {
	client := &stubClient{content: "```json\n" + `{
		"recipes": [
			{"id": "r1", "name": " Lasagna ", "ingredients": [{"item": "cheese", "quantity": "1 cup"}], "steps": ["Bake"]},
			{"id": "", "name": "Oatmeal", "ingredients": "['1 cup oats']"},
			{"id": "r3", "name": "  "}
		],
		"schedule": [
			{"day": "Monday", "meal_type": "Dinner", "recipe_id": "r1", "portion_multiplier": 1},
			{"day": "Tuesday", "meal_type": "brunch", "recipe_id": "lasagna"},
			{"day": "Wednesday", "meal_type": "breakfast", "recipe_id": "r2"},
			{"day": "Thursday", "meal_type": "lunch", "recipe_id": "r3"},
			{"day": "Friday", "meal_type": "lunch", "recipe_id": "ghost"}
		],
		"grocery_list": [{"item": "cheese", "quantity": "2 cups"}, {"item": " ", "quantity": "1"}]
	}` + "\n```"}

	service := NewService(client)
	input := MealPlanInput{
		WeekOf: "2024-01-01",
		Survey: SurveyInput{HouseholdSize: 2, MealsPerDay: []string{"breakfast", "dinner"}, AvoidIngredients: []string{"peanut"}},
	}

	response, prompt, raw, err := service.GenerateMealPlan(context.Background(), input)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Contains(t, prompt, "breakfast, dinner")
	assert.Contains(t, prompt, "Never use: peanut")
	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)

	require.Len(t, response.Recipes, 2)
	assert.Equal(t, "Lasagna", response.Recipes[0].Name)
	assert.Equal(t, "r2", response.Recipes[1].ID)
	assert.Equal(t, "oats", response.Recipes[1].Ingredients[0].Item)

	require.Len(t, response.Schedule, 3)
	assert.Equal(t, "dinner", response.Schedule[0].MealType)
	assert.Equal(t, "r1", response.Schedule[1].RecipeID)
	assert.Equal(t, "dinner", response.Schedule[1].MealType)
	assert.Nil(t, response.Schedule[1].PortionMultiplier)
	assert.Equal(t, "r2", response.Schedule[2].RecipeID)

	require.Len(t, response.GroceryList, 1)
}

func TestGenerateMealPlanRejectsEmptyPlan(t *testing.T) {
	service := NewService(&stubClient{content: `{"recipes": [], "schedule": []}`})

	_, _, _, err := service.GenerateMealPlan(context.Background(), MealPlanInput{})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestGenerateMealPlanClientError(t *testing.T) {
	service := NewService(&stubClient{err: errors.New("boom")})

	_, prompt, _, err := service.GenerateMealPlan(context.Background(), MealPlanInput{WeekOf: "2024-01-01"})
	require.Error(t, err)
	assert.Contains(t, prompt, "2024-01-01")
}

func TestSwapRecipe(t *testing.T) {
	client := &stubClient{content: `{"recipe": {"name": "Chili", "ingredients": [{"item": "beans", "quantity": "2 cans"}], "meal_types": ["DINNER"]}}`}
	service := NewService(client)

	recipe, prompt, _, err := service.SwapRecipe(context.Background(), SwapInput{
		MealType: "dinner",
		Current:  RecipeDraft{Name: "Lasagna"},
		Exclude:  []string{"Tacos"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chili", recipe.Name)
	assert.Equal(t, []string{"dinner"}, recipe.MealTypes)
	assert.Contains(t, prompt, `differ from "Lasagna" and from: Tacos`)
}

// TestSwapRecipeRejectsSameRecipe проверяет, что замена не совпадает с текущим рецептом.
func TestSwapRecipeRejectsSameRecipe(t *testing.T) {
	service := NewService(&stubClient{content: `{"recipe": {"name": "lasagna", "ingredients": ["1 box pasta"]}}`})

	_, _, _, err := service.SwapRecipe(context.Background(), SwapInput{Current: RecipeDraft{Name: "Lasagna"}})
	assert.Error(t, err)

	service = NewService(&stubClient{content: `{"recipe": {"name": "Soup"}}`})
	_, _, _, err = service.SwapRecipe(context.Background(), SwapInput{Current: RecipeDraft{Name: "Lasagna"}})
	assert.Error(t, err)
}
