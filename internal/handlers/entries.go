package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/repository"
)

type EntryHandler struct {
	Plans    *repository.MealPlanRepository
	Recipes  *repository.RecipeRepository
	Surveys  *repository.SurveyRepository
	Service  *ai.Service
	Recorder *AIRecorder
	Notifier *notifications.Hub
}

// NewEntryHandler создает обработчик записей плана.
func NewEntryHandler(plans *repository.MealPlanRepository, recipes *repository.RecipeRepository, surveys *repository.SurveyRepository, service *ai.Service, recorder *AIRecorder, notifier *notifications.Hub) *EntryHandler {
	return &EntryHandler{
		Plans:    plans,
		Recipes:  recipes,
		Surveys:  surveys,
		Service:  service,
		Recorder: recorder,
		Notifier: notifier,
	}
}

type AddEntryRequest struct {
	RecipeID          string   `json:"recipe_id" validate:"required,uuid"`
	PlannedForDate    string   `json:"planned_for_date" validate:"omitempty,isodate"`
	MealType          string   `json:"meal_type" validate:"omitempty,mealtype"`
	PortionMultiplier *float64 `json:"portion_multiplier" validate:"omitempty,gte=0,lte=50"`
	SlotLabel         string   `json:"slot_label" validate:"max=100"`
}

// UpdateEntryRequest: пустая строка в planned_for_date снимает дату.
type UpdateEntryRequest struct {
	PlannedForDate    *string  `json:"planned_for_date"`
	MealType          *string  `json:"meal_type" validate:"omitempty,mealtype"`
	PortionMultiplier *float64 `json:"portion_multiplier" validate:"omitempty,gte=0,lte=50"`
}

// Add добавляет рецепт пользователя в план.
func (h *EntryHandler) Add(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}

	var req AddEntryRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	plan, err := h.Plans.GetByID(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "meal plan not found")
		}
		return serverError(c)
	}

	input := repository.EntryInput{
		RecipeID:          uuid.MustParse(req.RecipeID),
		SlotLabel:         strings.TrimSpace(req.SlotLabel),
		MealType:          models.ParseMealType(req.MealType),
		PortionMultiplier: models.ResolvePortionMultiplier(req.PortionMultiplier),
	}
	if req.PlannedForDate != "" {
		day, err := entryDate(plan, req.PlannedForDate)
		if err != nil {
			return badRequest(c, err.Error())
		}
		input.PlannedForDate = &day
		input.DayHint = day.Weekday().String()
	}

	entry, err := h.Plans.AddEntry(ctx, userID, planID, input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "recipe not found")
		case errors.Is(err, repository.ErrInvalid):
			return badRequest(c, "invalid entry")
		}
		return serverError(c)
	}

	publishPlanUpdate(h.Notifier, userID, plan)
	return c.JSON(http.StatusCreated, entry)
}

// Update меняет дату, прием пищи или множитель порций записи.
func (h *EntryHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}
	entryID, ok := paramID(c, "entryId")
	if !ok {
		return badRequest(c, "invalid entry id")
	}

	var req UpdateEntryRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	plan, err := h.Plans.GetByID(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "meal plan not found")
		}
		return serverError(c)
	}

	patch := repository.EntryPatch{PortionMultiplier: req.PortionMultiplier}
	if req.MealType != nil {
		mealType := models.ParseMealType(*req.MealType)
		patch.MealType = &mealType
	}
	if req.PlannedForDate != nil {
		if strings.TrimSpace(*req.PlannedForDate) == "" {
			patch.ClearDate = true
		} else {
			day, err := entryDate(plan, *req.PlannedForDate)
			if err != nil {
				return badRequest(c, err.Error())
			}
			patch.PlannedForDate = &day
		}
	}

	entry, err := h.Plans.UpdateEntry(ctx, userID, planID, entryID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "entry not found")
		case errors.Is(err, repository.ErrInvalid):
			return badRequest(c, "invalid entry")
		}
		return serverError(c)
	}

	publishPlanUpdate(h.Notifier, userID, plan)
	return c.JSON(http.StatusOK, entry)
}

// Delete удаляет запись из плана.
func (h *EntryHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}
	entryID, ok := paramID(c, "entryId")
	if !ok {
		return badRequest(c, "invalid entry id")
	}

	if err := h.Plans.DeleteEntry(c.Request().Context(), userID, planID, entryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "entry not found")
		}
		return serverError(c)
	}

	publishPlanUpdate(h.Notifier, userID, models.MealPlan{ID: planID})
	return c.NoContent(http.StatusNoContent)
}

// Swap просит модель заменить рецепт записи. Новый рецепт хранит ссылку на замененный.
func (h *EntryHandler) Swap(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}
	entryID, ok := paramID(c, "entryId")
	if !ok {
		return badRequest(c, "invalid entry id")
	}

	ctx := c.Request().Context()
	entry, err := h.Plans.GetEntry(ctx, userID, planID, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "entry not found")
		}
		return serverError(c)
	}

	siblings, err := h.Plans.ListEntries(ctx, planID)
	if err != nil {
		return serverError(c)
	}

	survey, err := h.Surveys.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return serverError(c)
		}
		survey = defaultSurvey(userID)
	}

	input := buildSwapInput(entry, siblings, survey)
	started := time.Now()
	draft, prompt, raw, err := h.Service.SwapRecipe(ctx, input)
	h.Recorder.Record(ctx, aiCall{
		UserID:      userID,
		PlanID:      &planID,
		RequestType: aiRequestSwapRecipe,
		Prompt:      prompt,
		Input:       input,
		Output:      draft,
		Raw:         raw,
		Started:     started,
		Err:         err,
	})
	if err != nil {
		slog.Warn("recipe swap failed", slog.String("plan_id", planID.String()), slog.String("entry_id", entryID.String()), slog.String("error", err.Error()))
		return badGateway(c, "could not generate a replacement recipe")
	}

	replacesID := entry.RecipeID
	recipe, err := h.Recipes.Create(ctx, userID, repository.RecipeInput{
		Name:        draft.Name,
		Ingredients: draft.Ingredients,
		Steps:       draft.Steps,
		MealTypes:   draft.MealTypes,
		Source:      models.RecipeSourceAI,
		ReplacesID:  &replacesID,
	})
	if err != nil {
		return serverError(c)
	}

	updated, err := h.Plans.ReplaceEntryRecipe(ctx, userID, planID, entryID, recipe.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "entry not found")
		}
		return serverError(c)
	}

	slog.Info("recipe swapped", slog.String("plan_id", planID.String()), slog.String("recipe_id", recipe.ID.String()))
	publishPlanUpdate(h.Notifier, userID, models.MealPlan{ID: planID})
	return c.JSON(http.StatusOK, updated)
}

// entryDate разбирает дату записи и проверяет, что она внутри недели плана.
func entryDate(plan models.MealPlan, value string) (dates.Date, error) {
	day, err := dates.Parse(value)
	if err != nil {
		return dates.Date{}, errors.New("invalid planned_for_date")
	}
	if !dates.IsDateWithinPlan(plan.WeekOf, day) {
		return dates.Date{}, errors.New("planned_for_date is outside the plan week")
	}
	return day, nil
}

func buildSwapInput(entry models.MealPlanRecipe, siblings []models.MealPlanRecipe, survey models.Survey) ai.SwapInput {
	input := ai.SwapInput{
		Survey:   toSurveyInput(survey),
		MealType: string(models.ParseMealType(string(entry.MealType))),
	}
	if entry.Recipe != nil {
		input.Current = ai.RecipeDraft{
			Name:        entry.Recipe.Name,
			Ingredients: entry.Recipe.Ingredients,
			Steps:       entry.Recipe.Steps,
			MealTypes:   entry.Recipe.MealTypes,
		}
	}

	seen := make(map[string]struct{}, len(siblings))
	for _, sibling := range siblings {
		if sibling.Recipe == nil || sibling.ID == entry.ID {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(sibling.Recipe.Name))
		if _, exists := seen[key]; exists || key == "" {
			continue
		}
		seen[key] = struct{}{}
		input.Exclude = append(input.Exclude, sibling.Recipe.Name)
	}

	return input
}
