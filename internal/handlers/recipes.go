package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/repository"
)

type RecipeHandler struct {
	Recipes  *repository.RecipeRepository
	Plans    *repository.MealPlanRepository
	Notifier *notifications.Hub
}

// NewRecipeHandler создает обработчик рецептов и избранного.
func NewRecipeHandler(recipes *repository.RecipeRepository, plans *repository.MealPlanRepository, notifier *notifications.Hub) *RecipeHandler {
	return &RecipeHandler{Recipes: recipes, Plans: plans, Notifier: notifier}
}

type IngredientRequest struct {
	Item     string `json:"item" validate:"required,max=200"`
	Quantity string `json:"quantity" validate:"max=100"`
	Unit     string `json:"unit" validate:"max=50"`
}

// UpdateIngredientsRequest: если передан entry_id, запись плана plan_id переводится на новый рецепт.
type UpdateIngredientsRequest struct {
	PlanID      string              `json:"plan_id" validate:"omitempty,uuid"`
	EntryID     string              `json:"entry_id" validate:"omitempty,uuid"`
	Ingredients []IngredientRequest `json:"ingredients" validate:"required,min=1,max=100,dive"`
}

type UpdateIngredientsResponse struct {
	Recipe models.Recipe          `json:"recipe"`
	Entry  *models.MealPlanRecipe `json:"entry,omitempty"`
}

// Get возвращает рецепт пользователя.
func (h *RecipeHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recipeID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	recipe, err := h.Recipes.GetByID(c.Request().Context(), userID, recipeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "recipe not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, recipe)
}

// UpdateIngredients сохраняет новую версию рецепта с другими ингредиентами.
// Исходный рецепт не меняется: на него могут ссылаться другие планы.
func (h *RecipeHandler) UpdateIngredients(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recipeID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	var req UpdateIngredientsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if req.EntryID != "" && req.PlanID == "" {
		return badRequest(c, "plan_id is required with entry_id")
	}

	ctx := c.Request().Context()
	original, err := h.Recipes.GetByID(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "recipe not found")
		}
		return serverError(c)
	}

	recipe, err := h.Recipes.Create(ctx, userID, repository.RecipeInput{
		Name:        original.Name,
		Ingredients: toIngredientList(req.Ingredients),
		Steps:       original.Steps,
		MealTypes:   original.MealTypes,
		Source:      models.RecipeSourceUser,
		ReplacesID:  &original.ID,
	})
	if err != nil {
		return serverError(c)
	}

	response := UpdateIngredientsResponse{Recipe: recipe}
	if req.EntryID != "" {
		planID := uuid.MustParse(req.PlanID)
		entry, err := h.Plans.ReplaceEntryRecipe(ctx, userID, planID, uuid.MustParse(req.EntryID), recipe.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(c, "entry not found")
			}
			return serverError(c)
		}
		response.Entry = &entry
		publishPlanUpdate(h.Notifier, userID, models.MealPlan{ID: planID})
	}

	return c.JSON(http.StatusCreated, response)
}

// ListFavorites возвращает избранные рецепты.
func (h *RecipeHandler) ListFavorites(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recipes, err := h.Recipes.ListFavorites(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, map[string][]models.Recipe{"recipes": recipes})
}

// AddFavorite добавляет рецепт в избранное; повторное добавление не ошибка.
func (h *RecipeHandler) AddFavorite(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recipeID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	if err := h.Recipes.AddFavorite(c.Request().Context(), userID, recipeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "recipe not found")
		}
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RecipeHandler) RemoveFavorite(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recipeID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	if err := h.Recipes.RemoveFavorite(c.Request().Context(), userID, recipeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "favorite not found")
		}
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

func toIngredientList(values []IngredientRequest) models.IngredientList {
	out := make(models.IngredientList, 0, len(values))
	for _, value := range values {
		item := strings.TrimSpace(value.Item)
		if item == "" {
			continue
		}
		out = append(out, models.RecipeIngredient{
			Item:     item,
			Quantity: strings.TrimSpace(value.Quantity),
			Unit:     strings.TrimSpace(value.Unit),
		})
	}
	return out
}
