package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/grocery"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/repository"
	"example.com/ai-meal-planner/backend/internal/schedule"
)

var errPlanOverlap = errors.New("a meal plan already covers this week")

type MealPlanHandler struct {
	Plans    *repository.MealPlanRepository
	Notifier *notifications.Hub
	Location *time.Location
	// today подменяется в тестах
	today func() dates.Date
}

// NewMealPlanHandler создает обработчик планов питания.
func NewMealPlanHandler(plans *repository.MealPlanRepository, notifier *notifications.Hub, loc *time.Location) *MealPlanHandler {
	return &MealPlanHandler{Plans: plans, Notifier: notifier, Location: loc}
}

type CreateMealPlanRequest struct {
	WeekOf string `json:"week_of" validate:"required,isodate"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress completed"`
}

type MealPlanResponse struct {
	ID            uuid.UUID              `json:"id"`
	WeekOf        dates.Date             `json:"week_of"`
	WeekEnd       dates.Date             `json:"week_end"`
	Status        models.MealPlanStatus  `json:"status"`
	StoredStatus  models.MealPlanStatus  `json:"stored_status"`
	AIGroceryList []models.AIGroceryItem `json:"ai_grocery_list,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type MealPlanDetailResponse struct {
	Plan        MealPlanResponse `json:"plan"`
	Week        schedule.Week    `json:"week"`
	GroceryList grocery.Result   `json:"grocery_list"`
}

// List возвращает планы пользователя с вычисленным статусом.
func (h *MealPlanHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	plans, err := h.Plans.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	today := h.currentDay()
	response := make([]MealPlanResponse, 0, len(plans))
	for _, plan := range plans {
		response = append(response, toMealPlanResponse(plan, today))
	}

	return c.JSON(http.StatusOK, map[string][]MealPlanResponse{"meal_plans": response})
}

// Create создает пустой план; недели планов пользователя не пересекаются.
func (h *MealPlanHandler) Create(c echo.Context) error {
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

	plan, err := createPlan(c.Request().Context(), h.Plans, userID, weekOf, models.MealPlanStatusPending)
	if err != nil {
		if errors.Is(err, errPlanOverlap) {
			return conflict(c, err.Error())
		}
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, toMealPlanResponse(plan, h.currentDay()))
}

// Get возвращает план, разложенный по дням, и рассчитанный список покупок.
func (h *MealPlanHandler) Get(c echo.Context) error {
	plan, ok, err := h.loadPlan(c)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, MealPlanDetailResponse{
		Plan:        toMealPlanResponse(plan, h.currentDay()),
		Week:        schedule.Organize(plan),
		GroceryList: grocery.AggregateDetailed(grocery.OccurrencesFromEntries(plan.Recipes)),
	})
}

// Week возвращает только раскладку плана по дням.
func (h *MealPlanHandler) Week(c echo.Context) error {
	plan, ok, err := h.loadPlan(c)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, schedule.Organize(plan))
}

// UpdateStatus меняет сохраненный статус плана.
func (h *MealPlanHandler) UpdateStatus(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}

	var req UpdateStatusRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	status, ok := models.ParseMealPlanStatus(req.Status)
	if !ok {
		return badRequest(c, "invalid status")
	}

	ctx := c.Request().Context()
	current, err := h.Plans.GetByID(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "meal plan not found")
		}
		return serverError(c)
	}
	if current.Status == models.MealPlanStatusGenerating {
		return conflict(c, "meal plan is still generating")
	}

	plan, err := h.Plans.UpdateStatus(ctx, userID, planID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "meal plan not found")
		}
		return serverError(c)
	}

	publishPlanUpdate(h.Notifier, userID, plan)
	return c.JSON(http.StatusOK, toMealPlanResponse(plan, h.currentDay()))
}

// Delete удаляет план; рецепты остаются у пользователя.
func (h *MealPlanHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid plan id")
	}

	if err := h.Plans.Delete(c.Request().Context(), userID, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "meal plan not found")
		}
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

// loadPlan читает план из пути вместе с записями; при ok=false ответ уже отправлен.
func (h *MealPlanHandler) loadPlan(c echo.Context) (models.MealPlan, bool, error) {
	return loadPlanWithEntries(c, h.Plans)
}

func (h *MealPlanHandler) currentDay() dates.Date {
	if h.today != nil {
		return h.today()
	}
	return dates.Today(h.Location)
}

func loadPlanWithEntries(c echo.Context, plans *repository.MealPlanRepository) (models.MealPlan, bool, error) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return models.MealPlan{}, false, unauthorized(c)
	}

	planID, ok := paramID(c, "id")
	if !ok {
		return models.MealPlan{}, false, badRequest(c, "invalid plan id")
	}

	plan, err := plans.GetWithEntries(c.Request().Context(), userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.MealPlan{}, false, notFound(c, "meal plan not found")
		}
		return models.MealPlan{}, false, serverError(c)
	}

	return plan, true, nil
}

// createPlan создает план, если его неделя не пересекается с уже существующими.
func createPlan(ctx context.Context, plans *repository.MealPlanRepository, userID uuid.UUID, weekOf dates.Date, status models.MealPlanStatus) (models.MealPlan, error) {
	plan, err := plans.CreateForWeek(ctx, userID, weekOf, status)
	if errors.Is(err, repository.ErrConflict) {
		return models.MealPlan{}, errPlanOverlap
	}
	return plan, err
}

func toMealPlanResponse(plan models.MealPlan, today dates.Date) MealPlanResponse {
	return MealPlanResponse{
		ID:            plan.ID,
		WeekOf:        plan.WeekOf,
		WeekEnd:       dates.WeekEnd(plan.WeekOf),
		Status:        schedule.EffectiveStatus(plan.WeekOf, plan.Status, today),
		StoredStatus:  plan.Status,
		AIGroceryList: plan.AIGroceryList,
		CreatedAt:     plan.CreatedAt,
		UpdatedAt:     plan.UpdatedAt,
	}
}

func publishPlanUpdate(hub *notifications.Hub, userID uuid.UUID, plan models.MealPlan) {
	if hub == nil {
		return
	}

	hub.PublishPlan(userID, notifications.EventMealPlanUpdated, notifications.PlanEvent{
		PlanID: plan.ID,
		Status: string(plan.Status),
	})
}
