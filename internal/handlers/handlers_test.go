package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/grocery"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
)

func newTestContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func floatPtr(value float64) *float64 {
	return &value
}

func TestMapGeneratedPlanResolvesDaysAgainstPlanWeek(t *testing.T) {
	// неделя начинается в среду
	weekOf := dates.MustParse("2026-10-14")
	response := ai.MealPlanResponse{
		Recipes: []ai.RecipeDraft{
			{ID: "r1", Name: "Omelette", Ingredients: models.IngredientList{{Item: "egg", Quantity: "2"}}},
			{ID: "r2", Name: "Chili"},
		},
		Schedule: []ai.ScheduleEntry{
			{SlotLabel: "Monday breakfast", Day: "Monday", MealType: "breakfast", RecipeID: "r1"},
			{SlotLabel: "Day 2 dinner", Day: "Day 2", MealType: "DINNER", RecipeID: "r2", PortionMultiplier: floatPtr(1.5)},
			{SlotLabel: "Someday", Day: "someday", MealType: "brunch", RecipeID: "r2"},
		},
		GroceryList: []ai.GroceryItem{{Item: "eggs", Quantity: "12"}},
	}

	contents := mapGeneratedPlan(response, weekOf)

	assert.Equal(t, models.MealPlanStatusPending, contents.Status)
	require.Len(t, contents.Recipes, 2)
	assert.Equal(t, "r1", contents.Recipes[0].Ref)
	assert.Equal(t, models.RecipeSourceAI, contents.Recipes[0].Source)

	require.Len(t, contents.Entries, 3)
	require.NotNil(t, contents.Entries[0].PlannedForDate)
	assert.Equal(t, "2026-10-19", contents.Entries[0].PlannedForDate.String())
	assert.Equal(t, models.MealTypeBreakfast, contents.Entries[0].MealType)
	assert.Equal(t, models.DefaultPortionMultiplier, contents.Entries[0].PortionMultiplier)

	require.NotNil(t, contents.Entries[1].PlannedForDate)
	assert.Equal(t, "2026-10-15", contents.Entries[1].PlannedForDate.String())
	assert.Equal(t, models.MealTypeDinner, contents.Entries[1].MealType)
	assert.Equal(t, 1.5, contents.Entries[1].PortionMultiplier)

	assert.Nil(t, contents.Entries[2].PlannedForDate)
	assert.Equal(t, "someday", contents.Entries[2].DayHint)
	assert.Equal(t, models.MealTypeDinner, contents.Entries[2].MealType)

	assert.Equal(t, []models.AIGroceryItem{{Item: "eggs", Quantity: "12"}}, contents.AIGroceryList)
}

func TestBuildFallbackContents(t *testing.T) {
	weekOf := dates.MustParse("2026-10-12")

	empty := buildFallbackContents(nil, weekOf)
	assert.Empty(t, empty.Entries)
	assert.Equal(t, models.MealPlanStatusPending, empty.Status)

	favorites := []models.Recipe{{ID: uuid.New(), Name: "Tacos"}, {ID: uuid.New(), Name: "Pasta"}}
	contents := buildFallbackContents(favorites, weekOf)

	require.Len(t, contents.Entries, dates.DaysInWeek)
	assert.Empty(t, contents.Recipes)
	for i, entry := range contents.Entries {
		assert.Equal(t, favorites[i%2].ID, entry.RecipeID)
		require.NotNil(t, entry.PlannedForDate)
		assert.Equal(t, weekOf.AddDays(i), *entry.PlannedForDate)
		assert.Equal(t, models.MealTypeDinner, entry.MealType)
	}
	assert.Equal(t, "Monday dinner", contents.Entries[0].SlotLabel)
}

func TestBuildMealPlanInput(t *testing.T) {
	weekOf := dates.MustParse("2026-10-12")
	busy := [dates.DaysInWeek]int{0, 3, 0, 0, 1, 0, 0}

	favorites := make([]models.Recipe, 0, maxFavoritesInPrompt+2)
	for i := 0; i < maxFavoritesInPrompt+2; i++ {
		favorites = append(favorites, models.Recipe{Name: "favorite"})
	}

	input := buildMealPlanInput(weekOf, models.Survey{HouseholdSize: 3}, busy, favorites)

	assert.Equal(t, "2026-10-12", input.WeekOf)
	require.Len(t, input.Days, dates.DaysInWeek)
	assert.Equal(t, "Monday", input.Days[0].Weekday)
	assert.Equal(t, 3, input.Days[1].BusyEvents)
	assert.Equal(t, "2026-10-18", input.Days[6].Date)
	assert.Len(t, input.FavoriteRecipes, maxFavoritesInPrompt)
	assert.Equal(t, 3, input.Survey.HouseholdSize)
	assert.Equal(t, []string{"dinner"}, input.Survey.MealsPerDay)
}

func TestToMealPlanResponseEffectiveStatus(t *testing.T) {
	plan := models.MealPlan{ID: uuid.New(), WeekOf: dates.MustParse("2026-10-12"), Status: models.MealPlanStatusPending}

	inside := toMealPlanResponse(plan, dates.MustParse("2026-10-15"))
	assert.Equal(t, models.MealPlanStatusInProgress, inside.Status)
	assert.Equal(t, models.MealPlanStatusPending, inside.StoredStatus)
	assert.Equal(t, "2026-10-18", inside.WeekEnd.String())

	before := toMealPlanResponse(plan, dates.MustParse("2026-10-11"))
	assert.Equal(t, models.MealPlanStatusPending, before.Status)

	plan.Status = models.MealPlanStatusCompleted
	completed := toMealPlanResponse(plan, dates.MustParse("2026-10-15"))
	assert.Equal(t, models.MealPlanStatusCompleted, completed.Status)
}

func TestGroceryExportCSV(t *testing.T) {
	plan := models.MealPlan{ID: uuid.New(), WeekOf: dates.MustParse("2026-10-12")}
	result := grocery.Result{
		Items:        []models.CalculatedGroceryItem{{ItemName: "milk", Quantity: 1.5, Unit: "cup"}},
		Unquantified: []string{"salt"},
	}

	export := buildGroceryExport(plan, result, grocery.DefaultVocabulary())
	require.Len(t, export.Items, 2)
	assert.Equal(t, "Dairy", export.Items[0].Category)
	require.NotNil(t, export.Items[0].Quantity)
	assert.Nil(t, export.Items[1].Quantity)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	require.NoError(t, writeGroceryCSV(writer, export))
	writer.Flush()
	require.NoError(t, writer.Error())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "item_name,quantity,unit,category", lines[0])
	assert.Equal(t, "milk,1.5,cup,Dairy", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "salt,,,"))
}

func TestGroceryCSVEscapesFormulas(t *testing.T) {
	export := GroceryExport{Items: []GroceryExportItem{
		{ItemName: "=HYPERLINK(\"http://x\")", Quantity: floatPtr(1), Unit: "@cup", Category: "Other"},
		{ItemName: "-1 cheese", Category: "+Dairy"},
		{ItemName: "olive oil", Category: "Pantry"},
	}}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	require.NoError(t, writeGroceryCSV(writer, export))
	writer.Flush()

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"'=HYPERLINK(\"http://x\")", "1", "'@cup", "Other"}, records[1])
	assert.Equal(t, []string{"'-1 cheese", "", "", "'+Dairy"}, records[2])
	assert.Equal(t, []string{"olive oil", "", "", "Pantry"}, records[3])
}

func TestParseRange(t *testing.T) {
	fallback := dates.MustParse("2026-10-12")

	start, end, err := parseRange("", "", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, start)
	assert.Equal(t, "2026-10-18", end.String())

	start, end, err = parseRange("2026-10-01", "2026-10-03", fallback)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", start.String())
	assert.Equal(t, "2026-10-03", end.String())

	_, _, err = parseRange("2026-10-05", "2026-10-01", fallback)
	assert.Error(t, err)

	_, _, err = parseRange("2026-01-01", "2026-06-01", fallback)
	assert.Error(t, err)

	_, _, err = parseRange("yesterday", "", fallback)
	assert.Error(t, err)
}

func TestParseProvider(t *testing.T) {
	provider, ok := parseProvider(" Google ")
	assert.True(t, ok)
	assert.Equal(t, models.CalendarProviderGoogle, provider)

	provider, ok = parseProvider("apple")
	assert.True(t, ok)
	assert.Equal(t, models.CalendarProviderApple, provider)

	_, ok = parseProvider("outlook")
	assert.False(t, ok)
}

func TestOAuthRedirectURL(t *testing.T) {
	assert.Equal(t, "https://app.example.com/settings/calendar?provider=google&status=connected", oauthRedirectURL("https://app.example.com/", ""))
	assert.Equal(t, "https://app.example.com/settings/calendar?error=access_denied&provider=google", oauthRedirectURL("https://app.example.com", "access_denied"))
}

func TestSurveyHelpers(t *testing.T) {
	assert.Equal(t, []string{"peanuts", "shellfish"}, cleanList([]string{" Peanuts", "", "shellfish", "PEANUTS "}))

	assert.Equal(t,
		[]models.MealType{models.MealTypeLunch, models.MealTypeDinner},
		parseMealTypes([]string{"lunch", "dinner", "Lunch"}),
	)

	notes := "no spicy food"
	input := toSurveyInput(models.Survey{
		HouseholdSize:    0,
		AvoidIngredients: []string{"peanuts"},
		Notes:            &notes,
	})
	assert.Equal(t, defaultHouseholdSize, input.HouseholdSize)
	assert.Equal(t, []string{"dinner"}, input.MealsPerDay)
	assert.Equal(t, "no spicy food", input.Notes)
	assert.Equal(t, []string{"peanuts"}, input.AvoidIngredients)
}

func TestBuildSwapInputExcludesSiblings(t *testing.T) {
	entry := models.MealPlanRecipe{
		ID:       uuid.New(),
		MealType: models.MealTypeLunch,
		Recipe:   &models.Recipe{Name: "Caesar salad", MealTypes: []string{"lunch"}},
	}
	siblings := []models.MealPlanRecipe{
		entry,
		{ID: uuid.New(), Recipe: &models.Recipe{Name: "Chili"}},
		{ID: uuid.New(), Recipe: &models.Recipe{Name: "chili "}},
		{ID: uuid.New()},
		{ID: uuid.New(), Recipe: &models.Recipe{Name: "Ramen"}},
	}

	input := buildSwapInput(entry, siblings, models.Survey{HouseholdSize: 2})

	assert.Equal(t, "lunch", input.MealType)
	assert.Equal(t, "Caesar salad", input.Current.Name)
	assert.Equal(t, []string{"Chili", "Ramen"}, input.Exclude)
	assert.Equal(t, 2, input.Survey.HouseholdSize)
}

func TestEntryDate(t *testing.T) {
	plan := models.MealPlan{WeekOf: dates.MustParse("2026-10-12")}

	day, err := entryDate(plan, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", day.String())

	_, err = entryDate(plan, "2026-10-19")
	assert.Error(t, err)

	_, err = entryDate(plan, "not-a-date")
	assert.Error(t, err)
}

func TestParseAIRequestFilter(t *testing.T) {
	userID := uuid.New()
	c, _ := newTestContext("/?user_id=" + userID.String() + "&success=false&request_type=swap_recipe&include_payloads=true")

	filter, includePayloads, err := parseAIRequestFilter(c)
	require.NoError(t, err)
	assert.True(t, includePayloads)
	require.NotNil(t, filter.UserID)
	assert.Equal(t, userID, *filter.UserID)
	require.NotNil(t, filter.Success)
	assert.False(t, *filter.Success)
	require.NotNil(t, filter.RequestType)
	assert.Equal(t, "swap_recipe", *filter.RequestType)
	assert.Nil(t, filter.MealPlanID)

	c, _ = newTestContext("/?meal_plan_id=nope")
	_, _, err = parseAIRequestFilter(c)
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	c, _ := newTestContext("/?limit=500&offset=20")
	limit, offset, err := parsePagination(c, 50, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, limit)
	assert.Equal(t, 20, offset)

	c, _ = newTestContext("/")
	limit, offset, err = parsePagination(c, 50, 200)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	c, _ = newTestContext("/?offset=-1")
	_, _, err = parsePagination(c, 50, 200)
	assert.Error(t, err)
}

func TestParamID(t *testing.T) {
	id := uuid.New()
	c, _ := newTestContext("/")
	c.SetParamNames("id", "entryId")
	c.SetParamValues(id.String(), "bad")

	parsed, ok := paramID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, parsed)

	_, ok = paramID(c, "entryId")
	assert.False(t, ok)
}

func TestWriteSSE(t *testing.T) {
	c, rec := newTestContext("/")
	planID := uuid.New()

	err := writeSSE(c, notifications.Event{
		Type:      notifications.EventMealPlanReady,
		Timestamp: time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC),
		Data:      notifications.PlanEvent{PlanID: planID, Status: "pending"},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: "+notifications.EventMealPlanReady+"\ndata: {"))
	assert.Contains(t, body, planID.String())
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

func TestAdminMiddlewareWithoutAdmins(t *testing.T) {
	called := false
	next := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	handler := AdminMiddleware(nil, []string{" ", ""})(next)

	c, rec := newTestContext("/")
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext("/")
	c.Set(auth.ContextUserIDKey, uuid.New())
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}
