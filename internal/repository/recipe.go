package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

const recipeColumns = "r.id, r.user_id, r.name, r.ingredients, r.steps, r.meal_types, r.source, r.replaces_id, r.created_at"

type RecipeRepository struct {
	db *pgxpool.Pool
}

// RecipeInput describes a recipe to insert; recipes are never updated in place.
type RecipeInput struct {
	Name        string
	Ingredients models.IngredientList
	Steps       models.StepList
	MealTypes   []string
	Source      models.RecipeSource
	ReplacesID  *uuid.UUID
}

// NewRecipeRepository создает репозиторий рецептов.
func NewRecipeRepository(db *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// GetByID возвращает рецепт пользователя.
func (r *RecipeRepository) GetByID(ctx context.Context, userID, recipeID uuid.UUID) (models.Recipe, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes r
		 WHERE r.id = $1 AND r.user_id = $2`,
		recipeID, userID,
	)
	return scanRecipe(row)
}

// Create сохраняет новый рецепт.
func (r *RecipeRepository) Create(ctx context.Context, userID uuid.UUID, input RecipeInput) (models.Recipe, error) {
	return insertRecipe(ctx, r.db, userID, input)
}

// ListFavorites возвращает избранные рецепты, начиная с последних добавленных.
func (r *RecipeRepository) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recipeColumns+`
		 FROM favorite_recipes f
		 JOIN recipes r ON r.id = f.recipe_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := make([]models.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recipes, nil
}

// AddFavorite добавляет рецепт пользователя в избранное; повторное добавление не ошибка.
func (r *RecipeRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`INSERT INTO favorite_recipes (user_id, recipe_id)
		 SELECT $1, id FROM recipes WHERE id = $2 AND user_id = $1
		 ON CONFLICT (user_id, recipe_id) DO NOTHING`,
		userID, recipeID,
	)
	if err != nil {
		return mapError(err)
	}

	if cmd.RowsAffected() == 0 {
		// либо уже в избранном, либо рецепт не принадлежит пользователю
		if _, err := r.GetByID(ctx, userID, recipeID); err != nil {
			return err
		}
	}

	return nil
}

// RemoveFavorite удаляет рецепт из избранного.
func (r *RecipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM favorite_recipes WHERE user_id = $1 AND recipe_id = $2`,
		userID, recipeID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertRecipe(ctx context.Context, db queryRower, userID uuid.UUID, input RecipeInput) (models.Recipe, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Recipe{}, ErrInvalid
	}

	ingredients, err := json.Marshal(input.Ingredients)
	if err != nil {
		return models.Recipe{}, err
	}
	steps, err := json.Marshal(input.Steps)
	if err != nil {
		return models.Recipe{}, err
	}

	mealTypes := input.MealTypes
	if mealTypes == nil {
		mealTypes = []string{}
	}
	source := input.Source
	if source == "" {
		source = models.RecipeSourceAI
	}

	row := db.QueryRow(ctx,
		`INSERT INTO recipes AS r (user_id, name, ingredients, steps, meal_types, source, replaces_id)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7)
		 RETURNING `+recipeColumns,
		userID, name, string(ingredients), string(steps), mealTypes, source, input.ReplacesID,
	)
	return scanRecipe(row)
}

func scanRecipe(row pgx.Row) (models.Recipe, error) {
	var recipe models.Recipe
	var ingredients, steps []byte

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Name,
		&ingredients,
		&steps,
		&recipe.MealTypes,
		&recipe.Source,
		&recipe.ReplacesID,
		&recipe.CreatedAt,
	)
	if err != nil {
		return models.Recipe{}, mapError(err)
	}

	if err := decodeRecipeLists(&recipe, ingredients, steps); err != nil {
		return models.Recipe{}, err
	}

	return recipe, nil
}

// decodeRecipeLists разбирает jsonb-колонки; старые строки хранят списки строкой.
func decodeRecipeLists(recipe *models.Recipe, ingredients, steps []byte) error {
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &recipe.Ingredients); err != nil {
			return fmt.Errorf("decode ingredients of recipe %s: %w", recipe.ID, err)
		}
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &recipe.Steps); err != nil {
			return fmt.Errorf("decode steps of recipe %s: %w", recipe.ID, err)
		}
	}
	return nil
}
