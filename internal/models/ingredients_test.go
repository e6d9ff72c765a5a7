package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLegacyListQuotes проверяет кавычки и экранирование.
func TestParseLegacyListQuotes(t *testing.T) {
	got := ParseLegacyList(`['2 cups flour', "1 egg", 'salt \'to taste\'', "say \"hi\"", u'butter',  plain words , '']`)

	assert.Equal(t, []string{
		"2 cups flour",
		"1 egg",
		"salt 'to taste'",
		`say "hi"`,
		"butter",
		"plain words",
		"",
	}, got)
}

func TestParseLegacyListCommaInsideQuotes(t *testing.T) {
	got := ParseLegacyList(`['Preheat oven, then grease pan', 'Bake: 20 min']`)
	assert.Equal(t, []string{"Preheat oven, then grease pan", "Bake: 20 min"}, got)
}

func TestParseLegacyListEmpty(t *testing.T) {
	assert.Empty(t, ParseLegacyList(""))
	assert.Empty(t, ParseLegacyList("[]"))
	assert.Empty(t, ParseLegacyList("  [ ]  "))
}

func TestParseLegacyListObjects(t *testing.T) {
	got := ParseLegacyList(`[{'item': 'flour', 'quantity': '2 cups'}, {"item": "a}b", "quantity": "1"}]`)
	require.Len(t, got, 2)
	assert.Equal(t, `{'item': 'flour', 'quantity': '2 cups'}`, got[0])
	assert.Equal(t, `{"item": "a}b", "quantity": "1"}`, got[1])
}

func TestParseIngredientLine(t *testing.T) {
	cases := map[string]RecipeIngredient{
		"2 cups flour":       {Item: "flour", Quantity: "2 cups"},
		"1 egg":              {Item: "egg", Quantity: "1"},
		"3 large eggs":       {Item: "large eggs", Quantity: "3"},
		"1 1/2 tbsp. butter": {Item: "butter", Quantity: "1 1/2 tbsp"},
		"2 cloves of garlic": {Item: "garlic", Quantity: "2 cloves"},
		"salt to taste":      {Item: "salt to taste"},
		"12":                 {Item: "12"},
	}

	for line, want := range cases {
		assert.Equal(t, want, ParseIngredientLine(line), line)
	}
}

func TestIngredientListStructured(t *testing.T) {
	var list IngredientList
	require.NoError(t, json.Unmarshal([]byte(`[
		{"item": "flour", "quantity": "2 cups"},
		{"ingredient": "egg", "quantity": 2},
		{"name": "milk", "amount": 1.5, "unit": "cup"},
		{"item": "", "quantity": "1"},
		"3 tbsp sugar",
		42
	]`), &list))

	assert.Equal(t, IngredientList{
		{Item: "flour", Quantity: "2 cups"},
		{Item: "egg", Quantity: "2"},
		{Item: "milk", Quantity: "1.5", Unit: "cup"},
		{Item: "sugar", Quantity: "3 tbsp"},
	}, list)
}

// TestIngredientListLegacyMatchesStructured проверяет одинаковый разбор обоих форматов.
func TestIngredientListLegacyMatchesStructured(t *testing.T) {
	var structured, legacy, legacyDicts, jsonInString IngredientList
	require.NoError(t, json.Unmarshal([]byte(`[{"item":"flour","quantity":"2 cups"},{"item":"egg","quantity":"1"}]`), &structured))
	require.NoError(t, json.Unmarshal([]byte(`"['2 cups flour', '1 egg']"`), &legacy))
	require.NoError(t, json.Unmarshal([]byte(`"[{'item': 'flour', 'quantity': '2 cups'}, {'ingredient': 'egg', 'quantity': 1}]"`), &legacyDicts))
	require.NoError(t, json.Unmarshal([]byte(`"[{\"item\":\"flour\",\"quantity\":\"2 cups\"},{\"item\":\"egg\",\"quantity\":\"1\"}]"`), &jsonInString))

	assert.Equal(t, structured, legacy)
	assert.Equal(t, structured, legacyDicts)
	assert.Equal(t, structured, jsonInString)
}

func TestIngredientListAbsent(t *testing.T) {
	var recipe Recipe
	require.NoError(t, json.Unmarshal([]byte(`{"name":"toast"}`), &recipe))
	assert.Empty(t, recipe.Ingredients)
	assert.Empty(t, recipe.Steps)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"toast","ingredients":null,"steps":7}`), &recipe))
	assert.Empty(t, recipe.Ingredients)
	assert.Empty(t, recipe.Steps)

	encoded, err := json.Marshal(Recipe{Name: "toast"})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"ingredients":[]`)
	assert.Contains(t, string(encoded), `"steps":[]`)
}

func TestStepList(t *testing.T) {
	var structured, legacy, plain StepList
	require.NoError(t, json.Unmarshal([]byte(`["Boil water", "Add pasta, stir"]`), &structured))
	require.NoError(t, json.Unmarshal([]byte(`"['Boil water', 'Add pasta, stir']"`), &legacy))
	require.NoError(t, json.Unmarshal([]byte(`"Boil water\nAdd pasta, stir\n"`), &plain))

	assert.Equal(t, StepList{"Boil water", "Add pasta, stir"}, structured)
	assert.Equal(t, structured, legacy)
	assert.Equal(t, structured, plain)
}

func TestMealPlanRecipeDefaults(t *testing.T) {
	var entry MealPlanRecipe
	require.NoError(t, json.Unmarshal([]byte(`{"meal_type":"BRUNCH","planned_for_date":"2024-01-03T00:00:00Z"}`), &entry))

	assert.Equal(t, MealTypeDinner, entry.MealType)
	assert.Equal(t, 1.0, entry.PortionMultiplier)
	require.NotNil(t, entry.PlannedForDate)
	assert.Equal(t, "2024-01-03", entry.PlannedForDate.String())

	require.NoError(t, json.Unmarshal([]byte(`{"meal_type":" Lunch ","portion_multiplier":0,"planned_for_date":""}`), &entry))
	assert.Equal(t, MealTypeLunch, entry.MealType)
	assert.Equal(t, 0.0, entry.PortionMultiplier)
	assert.Nil(t, entry.PlannedForDate)
}

func TestParseMealPlanStatus(t *testing.T) {
	status, ok := ParseMealPlanStatus(" In-Progress ")
	assert.True(t, ok)
	assert.Equal(t, MealPlanStatusInProgress, status)

	_, ok = ParseMealPlanStatus("archived")
	assert.False(t, ok)
}
