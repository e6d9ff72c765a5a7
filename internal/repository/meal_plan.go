package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

const (
	planColumns  = "id, user_id, week_of, status, ai_grocery_list, created_at, updated_at"
	entryColumns = "e.id, e.meal_plan_id, e.recipe_id, e.planned_for_date, e.day_hint, e.slot_label, e.meal_type, e.portion_multiplier, e.created_at"
)

type MealPlanRepository struct {
	db *pgxpool.Pool
}

// EntryInput places a recipe into a plan. RecipeRef points at a recipe of the
// same PlanContents; otherwise RecipeID must name an existing recipe of the user.
type EntryInput struct {
	RecipeID          uuid.UUID
	RecipeRef         string
	PlannedForDate    *dates.Date
	DayHint           string
	SlotLabel         string
	MealType          models.MealType
	PortionMultiplier float64
}

// PlanRecipeInput is a new recipe referenced by entries through Ref.
type PlanRecipeInput struct {
	Ref string
	RecipeInput
}

// PlanContents is the full generated content of a plan, written atomically.
type PlanContents struct {
	Recipes       []PlanRecipeInput
	Entries       []EntryInput
	AIGroceryList []models.AIGroceryItem
	Status        models.MealPlanStatus
}

// EntryPatch lists entry fields to change; nil fields keep their value.
type EntryPatch struct {
	PlannedForDate    *dates.Date
	ClearDate         bool
	MealType          *models.MealType
	PortionMultiplier *float64
}

// NewMealPlanRepository создает репозиторий планов питания.
func NewMealPlanRepository(db *pgxpool.Pool) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

// CreateForWeek создает план, только если у пользователя нет плана с пересекающейся неделей.
// Проверка и вставка идут в одной транзакции под advisory-блокировкой пользователя;
// ограничение meal_plans_no_overlap страхует от записи в обход этого метода.
func (r *MealPlanRepository) CreateForWeek(ctx context.Context, userID uuid.UUID, weekOf dates.Date, status models.MealPlanStatus) (models.MealPlan, error) {
	if weekOf.IsZero() {
		return models.MealPlan{}, ErrInvalid
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.MealPlan{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, weekLockKey(userID)); err != nil {
		return models.MealPlan{}, fmt.Errorf("lock meal plans of user %s: %w", userID, err)
	}

	overlapping, err := hasOverlappingWeek(ctx, tx, userID, weekOf)
	if err != nil {
		return models.MealPlan{}, err
	}
	if overlapping {
		return models.MealPlan{}, ErrConflict
	}

	plan, err := scanMealPlan(tx.QueryRow(ctx,
		`INSERT INTO meal_plans (user_id, week_of, status)
		 VALUES ($1, $2, $3)
		 RETURNING `+planColumns,
		userID, weekOf.Time(), status,
	))
	if err != nil {
		return models.MealPlan{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.MealPlan{}, mapError(err)
	}

	return plan, nil
}

func hasOverlappingWeek(ctx context.Context, tx pgx.Tx, userID uuid.UUID, weekOf dates.Date) (bool, error) {
	rows, err := tx.Query(ctx, `SELECT week_of FROM meal_plans WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var existing time.Time
		if err := rows.Scan(&existing); err != nil {
			return false, err
		}
		if dates.DatesOverlap(dates.Of(existing), weekOf) {
			return true, nil
		}
	}

	return false, rows.Err()
}

func weekLockKey(userID uuid.UUID) string {
	return "meal_plans:" + userID.String()
}

// ListByUser возвращает планы пользователя, начиная с самой поздней недели.
func (r *MealPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.MealPlan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+`
		 FROM meal_plans
		 WHERE user_id = $1
		 ORDER BY week_of DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.MealPlan, 0)
	for rows.Next() {
		plan, err := scanMealPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

// GetByID возвращает план пользователя без записей.
func (r *MealPlanRepository) GetByID(ctx context.Context, userID, planID uuid.UUID) (models.MealPlan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+planColumns+`
		 FROM meal_plans
		 WHERE id = $1 AND user_id = $2`,
		planID, userID,
	)
	return scanMealPlan(row)
}

// GetWithEntries возвращает план вместе с записями и их рецептами.
func (r *MealPlanRepository) GetWithEntries(ctx context.Context, userID, planID uuid.UUID) (models.MealPlan, error) {
	plan, err := r.GetByID(ctx, userID, planID)
	if err != nil {
		return plan, err
	}

	plan.Recipes, err = r.ListEntries(ctx, planID)
	if err != nil {
		return models.MealPlan{}, err
	}

	return plan, nil
}

// UpdateStatus меняет сохраненный статус плана.
func (r *MealPlanRepository) UpdateStatus(ctx context.Context, userID, planID uuid.UUID, status models.MealPlanStatus) (models.MealPlan, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE meal_plans
		 SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+planColumns,
		planID, userID, status,
	)
	return scanMealPlan(row)
}

// Delete удаляет план; записи удаляются каскадно, рецепты остаются.
func (r *MealPlanRepository) Delete(ctx context.Context, userID, planID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM meal_plans WHERE id = $1 AND user_id = $2`,
		planID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListEntries возвращает записи плана с рецептами в порядке добавления.
func (r *MealPlanRepository) ListEntries(ctx context.Context, planID uuid.UUID) ([]models.MealPlanRecipe, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+`, `+recipeColumns+`
		 FROM meal_plan_recipes e
		 JOIN recipes r ON r.id = e.recipe_id
		 WHERE e.meal_plan_id = $1
		 ORDER BY e.planned_for_date NULLS LAST, e.created_at, e.id`,
		planID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.MealPlanRecipe, 0)
	for rows.Next() {
		entry, err := scanEntryWithRecipe(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetEntry возвращает одну запись плана пользователя с рецептом.
func (r *MealPlanRepository) GetEntry(ctx context.Context, userID, planID, entryID uuid.UUID) (models.MealPlanRecipe, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+`, `+recipeColumns+`
		 FROM meal_plan_recipes e
		 JOIN meal_plans p ON p.id = e.meal_plan_id
		 JOIN recipes r ON r.id = e.recipe_id
		 WHERE e.id = $1 AND e.meal_plan_id = $2 AND p.user_id = $3`,
		entryID, planID, userID,
	)
	return scanEntryWithRecipe(row)
}

// ReplaceContents атомарно записывает содержимое плана: новые рецепты,
// записи расписания (старые удаляются), AI-список покупок и статус.
func (r *MealPlanRepository) ReplaceContents(ctx context.Context, userID, planID uuid.UUID, contents PlanContents) (models.MealPlan, error) {
	groceryList, err := encodeGroceryList(contents.AIGroceryList)
	if err != nil {
		return models.MealPlan{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.MealPlan{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	refs := make(map[string]uuid.UUID, len(contents.Recipes))
	for _, input := range contents.Recipes {
		recipe, err := insertRecipe(ctx, tx, userID, input.RecipeInput)
		if err != nil {
			return models.MealPlan{}, fmt.Errorf("insert recipe %q: %w", input.Name, err)
		}
		if input.Ref != "" {
			refs[input.Ref] = recipe.ID
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM meal_plan_recipes WHERE meal_plan_id = $1`, planID); err != nil {
		return models.MealPlan{}, err
	}

	for _, entry := range contents.Entries {
		recipeID, ok := resolveEntryRecipe(entry, refs)
		if !ok {
			return models.MealPlan{}, fmt.Errorf("entry references unknown recipe %q: %w", entry.RecipeRef, ErrInvalid)
		}
		entry.RecipeID = recipeID
		if _, err := insertEntry(ctx, tx, userID, planID, entry); err != nil {
			return models.MealPlan{}, err
		}
	}

	row := tx.QueryRow(ctx,
		`UPDATE meal_plans
		 SET status = $3, ai_grocery_list = $4::jsonb, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+planColumns,
		planID, userID, contents.Status, groceryList,
	)
	plan, err := scanMealPlan(row)
	if err != nil {
		return models.MealPlan{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.MealPlan{}, err
	}

	return plan, nil
}

// AddEntry добавляет рецепт пользователя в план.
func (r *MealPlanRepository) AddEntry(ctx context.Context, userID, planID uuid.UUID, input EntryInput) (models.MealPlanRecipe, error) {
	entryID, err := insertEntry(ctx, r.db, userID, planID, input)
	if err != nil {
		return models.MealPlanRecipe{}, err
	}
	r.touch(ctx, planID)

	return r.GetEntry(ctx, userID, planID, entryID)
}

// UpdateEntry меняет дату, тип приема пищи или множитель порций записи.
func (r *MealPlanRepository) UpdateEntry(ctx context.Context, userID, planID, entryID uuid.UUID, patch EntryPatch) (models.MealPlanRecipe, error) {
	var mealType *string
	if patch.MealType != nil {
		value := string(*patch.MealType)
		mealType = &value
	}

	cmd, err := r.db.Exec(ctx,
		`UPDATE meal_plan_recipes e
		 SET planned_for_date = CASE WHEN $4 THEN NULL ELSE COALESCE($5, e.planned_for_date) END,
		     meal_type = COALESCE($6, e.meal_type),
		     portion_multiplier = COALESCE($7, e.portion_multiplier)
		 FROM meal_plans p
		 WHERE e.id = $1 AND e.meal_plan_id = $2 AND p.id = e.meal_plan_id AND p.user_id = $3`,
		entryID, planID, userID, patch.ClearDate, dateArg(patch.PlannedForDate), mealType, patch.PortionMultiplier,
	)
	if err != nil {
		return models.MealPlanRecipe{}, mapError(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.MealPlanRecipe{}, ErrNotFound
	}
	r.touch(ctx, planID)

	return r.GetEntry(ctx, userID, planID, entryID)
}

// DeleteEntry удаляет запись из плана.
func (r *MealPlanRepository) DeleteEntry(ctx context.Context, userID, planID, entryID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM meal_plan_recipes e
		 USING meal_plans p
		 WHERE e.id = $1 AND e.meal_plan_id = $2 AND p.id = e.meal_plan_id AND p.user_id = $3`,
		entryID, planID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.touch(ctx, planID)

	return nil
}

// ReplaceEntryRecipe перенаправляет запись на другой рецепт пользователя.
func (r *MealPlanRepository) ReplaceEntryRecipe(ctx context.Context, userID, planID, entryID, recipeID uuid.UUID) (models.MealPlanRecipe, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE meal_plan_recipes e
		 SET recipe_id = r.id
		 FROM meal_plans p, recipes r
		 WHERE e.id = $1 AND e.meal_plan_id = $2 AND p.id = e.meal_plan_id AND p.user_id = $3
		   AND r.id = $4 AND r.user_id = $3`,
		entryID, planID, userID, recipeID,
	)
	if err != nil {
		return models.MealPlanRecipe{}, mapError(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.MealPlanRecipe{}, ErrNotFound
	}
	r.touch(ctx, planID)

	return r.GetEntry(ctx, userID, planID, entryID)
}

// touch bumps updated_at; a failure here never fails the entry change.
func (r *MealPlanRepository) touch(ctx context.Context, planID uuid.UUID) {
	_, _ = r.db.Exec(ctx, `UPDATE meal_plans SET updated_at = NOW() WHERE id = $1`, planID)
}

func insertEntry(ctx context.Context, db queryRower, userID, planID uuid.UUID, input EntryInput) (uuid.UUID, error) {
	mealType := models.ParseMealType(string(input.MealType))
	if input.PortionMultiplier < 0 {
		return uuid.Nil, ErrInvalid
	}

	var entryID uuid.UUID
	err := db.QueryRow(ctx,
		`INSERT INTO meal_plan_recipes (meal_plan_id, recipe_id, planned_for_date, day_hint, slot_label, meal_type, portion_multiplier)
		 SELECT p.id, r.id, $4::date, $5::text, $6::text, $7::text, $8::double precision
		 FROM meal_plans p, recipes r
		 WHERE p.id = $1 AND p.user_id = $2 AND r.id = $3 AND r.user_id = $2
		 RETURNING id`,
		planID, userID, input.RecipeID, dateArg(input.PlannedForDate), input.DayHint, input.SlotLabel, string(mealType), input.PortionMultiplier,
	).Scan(&entryID)
	if err != nil {
		return uuid.Nil, mapError(err)
	}

	return entryID, nil
}

func resolveEntryRecipe(entry EntryInput, refs map[string]uuid.UUID) (uuid.UUID, bool) {
	if entry.RecipeRef != "" {
		id, ok := refs[entry.RecipeRef]
		return id, ok
	}
	return entry.RecipeID, entry.RecipeID != uuid.Nil
}

// dateArg maps an optional date onto a nullable DATE parameter.
func dateArg(value *dates.Date) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	t := value.Time()
	return &t
}

func encodeGroceryList(items []models.AIGroceryItem) (*string, error) {
	if items == nil {
		return nil, nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	value := string(payload)
	return &value, nil
}

func scanMealPlan(row pgx.Row) (models.MealPlan, error) {
	var plan models.MealPlan
	var weekOf time.Time
	var groceryList []byte

	err := row.Scan(&plan.ID, &plan.UserID, &weekOf, &plan.Status, &groceryList, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return models.MealPlan{}, mapError(err)
	}

	plan.WeekOf = dates.Of(weekOf)
	if len(groceryList) > 0 {
		if err := json.Unmarshal(groceryList, &plan.AIGroceryList); err != nil {
			return models.MealPlan{}, fmt.Errorf("decode grocery list of plan %s: %w", plan.ID, err)
		}
	}

	return plan, nil
}

func scanEntryWithRecipe(row pgx.Row) (models.MealPlanRecipe, error) {
	var entry models.MealPlanRecipe
	var recipe models.Recipe
	var plannedFor *time.Time
	var mealType string
	var ingredients, steps []byte

	err := row.Scan(
		&entry.ID,
		&entry.MealPlanID,
		&entry.RecipeID,
		&plannedFor,
		&entry.DayHint,
		&entry.SlotLabel,
		&mealType,
		&entry.PortionMultiplier,
		&entry.CreatedAt,
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
		return models.MealPlanRecipe{}, mapError(err)
	}

	if plannedFor != nil {
		day := dates.Of(*plannedFor)
		entry.PlannedForDate = &day
	}
	entry.MealType = models.ParseMealType(mealType)

	if err := decodeRecipeLists(&recipe, ingredients, steps); err != nil {
		return models.MealPlanRecipe{}, err
	}
	entry.Recipe = &recipe

	return entry, nil
}
