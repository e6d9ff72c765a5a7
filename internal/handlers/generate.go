package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
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

const (
	defaultGenerationTimeout = 2 * time.Minute
	fallbackStoreTimeout     = 30 * time.Second
	maxFavoritesInPrompt     = 10
)

// busySource отдает занятость пользователя по дням недели плана.
type busySource interface {
	BusyDays(ctx context.Context, userID uuid.UUID, weekOf dates.Date) ([dates.DaysInWeek]int, error)
}

type GenerateHandler struct {
	Plans    *repository.MealPlanRepository
	Recipes  *repository.RecipeRepository
	Surveys  *repository.SurveyRepository
	Service  *ai.Service
	Calendar busySource
	Recorder *AIRecorder
	Notifier *notifications.Hub
	Timeout  time.Duration
	Location *time.Location

	wg sync.WaitGroup
}

// NewGenerateHandler создает обработчик AI-генерации планов.
func NewGenerateHandler(plans *repository.MealPlanRepository, recipes *repository.RecipeRepository, surveys *repository.SurveyRepository, service *ai.Service, busy busySource, recorder *AIRecorder, notifier *notifications.Hub, timeout time.Duration, loc *time.Location) *GenerateHandler {
	return &GenerateHandler{
		Plans:    plans,
		Recipes:  recipes,
		Surveys:  surveys,
		Service:  service,
		Calendar: busy,
		Recorder: recorder,
		Notifier: notifier,
		Timeout:  timeout,
		Location: loc,
	}
}

// Generate создает план в статусе generating и запускает генерацию в фоне.
// Готовность плана клиент узнает из SSE-событий meal_plan_ready или meal_plan_fallback.
func (h *GenerateHandler) Generate(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateMealPlanRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	weekOf, err := dates.Parse(req.WeekOf)
	if err != nil {
		return badRequest(c, "invalid week_of")
	}

	plan, err := createPlan(c.Request().Context(), h.Plans, userID, weekOf, models.MealPlanStatusGenerating)
	if err != nil {
		if errors.Is(err, errPlanOverlap) {
			return conflict(c, err.Error())
		}
		return serverError(c)
	}

	h.publish(userID, notifications.EventMealPlanGenerating, plan.ID, plan.Status, "")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(userID, plan)
	}()

	return c.JSON(http.StatusAccepted, toMealPlanResponse(plan, dates.Today(h.Location)))
}

// Wait ждет завершения фоновых генераций или отмены ctx.
func (h *GenerateHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *GenerateHandler) run(userID uuid.UUID, plan models.MealPlan) {
	logger := slog.With(slog.String("plan_id", plan.ID.String()), slog.String("user_id", userID.String()))

	var favorites []models.Recipe
	defer func() {
		if r := recover(); r != nil {
			logger.Error("meal plan generation panicked", slog.Any("panic", r))
			h.fallback(logger, userID, plan, favorites)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout())
	defer cancel()

	survey := h.loadSurvey(ctx, logger, userID)

	favorites, err := h.Recipes.ListFavorites(ctx, userID)
	if err != nil {
		logger.Warn("favorites unavailable", slog.String("error", err.Error()))
		favorites = nil
	}

	var busy [dates.DaysInWeek]int
	if h.Calendar != nil {
		if busy, err = h.Calendar.BusyDays(ctx, userID, plan.WeekOf); err != nil {
			logger.Warn("calendar events unavailable", slog.String("error", err.Error()))
		}
	}

	input := buildMealPlanInput(plan.WeekOf, survey, busy, favorites)
	started := time.Now()
	response, prompt, raw, err := h.Service.GenerateMealPlan(ctx, input)
	planID := plan.ID
	h.Recorder.Record(ctx, aiCall{
		UserID:      userID,
		PlanID:      &planID,
		RequestType: aiRequestGenerateMealPlan,
		Prompt:      prompt,
		Input:       input,
		Output:      response,
		Raw:         raw,
		Started:     started,
		Err:         err,
	})
	if err != nil {
		logger.Warn("ai meal plan generation failed", slog.String("error", err.Error()))
		h.fallback(logger, userID, plan, favorites)
		return
	}

	stored, err := h.Plans.ReplaceContents(ctx, userID, plan.ID, mapGeneratedPlan(response, plan.WeekOf))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("meal plan deleted during generation")
			return
		}
		logger.Warn("storing generated meal plan failed", slog.String("error", err.Error()))
		h.fallback(logger, userID, plan, favorites)
		return
	}

	logger.Info("ai meal plan generated",
		slog.Int("recipes", len(response.Recipes)),
		slog.Int("entries", len(response.Schedule)),
		slog.Duration("elapsed", time.Since(started)),
	)
	h.publish(userID, notifications.EventMealPlanReady, stored.ID, stored.Status, "")
}

// fallback собирает неделю из избранных рецептов. Контекст свой: таймаут генерации мог уже истечь.
func (h *GenerateHandler) fallback(logger *slog.Logger, userID uuid.UUID, plan models.MealPlan, favorites []models.Recipe) {
	ctx, cancel := context.WithTimeout(context.Background(), fallbackStoreTimeout)
	defer cancel()

	stored, err := h.Plans.ReplaceContents(ctx, userID, plan.ID, buildFallbackContents(favorites, plan.WeekOf))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return
		}
		logger.Error("fallback meal plan failed", slog.String("error", err.Error()))
		if _, err := h.Plans.UpdateStatus(ctx, userID, plan.ID, models.MealPlanStatusPending); err != nil {
			logger.Error("reset meal plan status failed", slog.String("error", err.Error()))
		}
		h.publish(userID, notifications.EventMealPlanFailed, plan.ID, models.MealPlanStatusPending, "meal plan generation failed")
		return
	}

	logger.Warn("ai meal plan fallback used", slog.Int("favorites", len(favorites)))
	h.publish(userID, notifications.EventMealPlanFallback, stored.ID, stored.Status, "the plan was built from your favorite recipes")
}

func (h *GenerateHandler) loadSurvey(ctx context.Context, logger *slog.Logger, userID uuid.UUID) models.Survey {
	survey, err := h.Surveys.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("survey unavailable", slog.String("error", err.Error()))
		}
		return defaultSurvey(userID)
	}
	return survey
}

func (h *GenerateHandler) publish(userID uuid.UUID, eventType string, planID uuid.UUID, status models.MealPlanStatus, message string) {
	if h.Notifier == nil {
		return
	}
	h.Notifier.PublishPlan(userID, eventType, notifications.PlanEvent{PlanID: planID, Status: string(status), Message: message})
}

func (h *GenerateHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return defaultGenerationTimeout
	}
	return h.Timeout
}

func buildMealPlanInput(weekOf dates.Date, survey models.Survey, busy [dates.DaysInWeek]int, favorites []models.Recipe) ai.MealPlanInput {
	days := make([]ai.DayInput, 0, dates.DaysInWeek)
	for i := 0; i < dates.DaysInWeek; i++ {
		day := weekOf.AddDays(i)
		days = append(days, ai.DayInput{
			Date:       day.String(),
			Weekday:    day.Weekday().String(),
			BusyEvents: busy[i],
		})
	}

	names := make([]string, 0, len(favorites))
	for _, recipe := range favorites {
		if len(names) == maxFavoritesInPrompt {
			break
		}
		names = append(names, recipe.Name)
	}

	return ai.MealPlanInput{
		WeekOf:          weekOf.String(),
		Days:            days,
		Survey:          toSurveyInput(survey),
		FavoriteRecipes: names,
	}
}

// mapGeneratedPlan переводит ответ модели в содержимое плана. День разрешается
// относительно недели плана; нераспознанный день оставляет запись без даты.
func mapGeneratedPlan(response ai.MealPlanResponse, weekOf dates.Date) repository.PlanContents {
	contents := repository.PlanContents{
		Recipes:       make([]repository.PlanRecipeInput, 0, len(response.Recipes)),
		Entries:       make([]repository.EntryInput, 0, len(response.Schedule)),
		AIGroceryList: make([]models.AIGroceryItem, 0, len(response.GroceryList)),
		Status:        models.MealPlanStatusPending,
	}

	for _, draft := range response.Recipes {
		contents.Recipes = append(contents.Recipes, repository.PlanRecipeInput{
			Ref: draft.ID,
			RecipeInput: repository.RecipeInput{
				Name:        draft.Name,
				Ingredients: draft.Ingredients,
				Steps:       draft.Steps,
				MealTypes:   draft.MealTypes,
				Source:      models.RecipeSourceAI,
			},
		})
	}

	for _, slot := range response.Schedule {
		entry := repository.EntryInput{
			RecipeRef:         slot.RecipeID,
			DayHint:           slot.Day,
			SlotLabel:         slot.SlotLabel,
			MealType:          models.ParseMealType(slot.MealType),
			PortionMultiplier: models.ResolvePortionMultiplier(slot.PortionMultiplier),
		}
		if day, ok := dates.ResolveDate(weekOf, slot.Day); ok {
			entry.PlannedForDate = &day
		}
		contents.Entries = append(contents.Entries, entry)
	}

	for _, item := range response.GroceryList {
		contents.AIGroceryList = append(contents.AIGroceryList, models.AIGroceryItem{Item: item.Item, Quantity: item.Quantity})
	}

	return contents
}

// buildFallbackContents ставит избранные рецепты на ужины по кругу. Без избранного план остается пустым.
func buildFallbackContents(favorites []models.Recipe, weekOf dates.Date) repository.PlanContents {
	contents := repository.PlanContents{
		Entries: make([]repository.EntryInput, 0, dates.DaysInWeek),
		Status:  models.MealPlanStatusPending,
	}
	if len(favorites) == 0 {
		return contents
	}

	for i := 0; i < dates.DaysInWeek; i++ {
		day := weekOf.AddDays(i)
		recipe := favorites[i%len(favorites)]
		contents.Entries = append(contents.Entries, repository.EntryInput{
			RecipeID:          recipe.ID,
			PlannedForDate:    &day,
			DayHint:           day.Weekday().String(),
			SlotLabel:         fmt.Sprintf("%s dinner", day.Weekday()),
			MealType:          models.MealTypeDinner,
			PortionMultiplier: models.DefaultPortionMultiplier,
		})
	}

	return contents
}
