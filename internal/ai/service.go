package ai

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"example.com/ai-meal-planner/backend/internal/models"
)

const systemPrompt = "You are a meal planning assistant. Respond with JSON only, without extra text."

//go:embed prompts/*.tmpl
var promptFiles embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFiles, "prompts/*.tmpl"))

var ErrEmptyPlan = errors.New("ai response has no recipes")

type Service struct {
	client Client
}

// NewService создает сервис работы с AI-клиентом.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// GenerateMealPlan запрашивает у AI план питания на неделю и валидирует ответ.
func (s *Service) GenerateMealPlan(ctx context.Context, input MealPlanInput) (MealPlanResponse, string, []byte, error) {
	prompt, err := renderPrompt("meal_plan.tmpl", input)
	if err != nil {
		return MealPlanResponse{}, "", nil, err
	}

	content, raw, err := s.chat(ctx, prompt)
	if err != nil {
		return MealPlanResponse{}, prompt, raw, err
	}

	var response MealPlanResponse
	if err := parseJSON(content, &response); err != nil {
		return MealPlanResponse{}, prompt, raw, err
	}

	normalizeMealPlanResponse(&response)
	if err := validateMealPlanResponse(response); err != nil {
		return MealPlanResponse{}, prompt, raw, err
	}

	return response, prompt, raw, nil
}

// SwapRecipe запрашивает замену рецепта, отличную от текущего.
func (s *Service) SwapRecipe(ctx context.Context, input SwapInput) (RecipeDraft, string, []byte, error) {
	prompt, err := renderPrompt("swap.tmpl", input)
	if err != nil {
		return RecipeDraft{}, "", nil, err
	}

	content, raw, err := s.chat(ctx, prompt)
	if err != nil {
		return RecipeDraft{}, prompt, raw, err
	}

	var response SwapResponse
	if err := parseJSON(content, &response); err != nil {
		return RecipeDraft{}, prompt, raw, err
	}

	recipe := response.Recipe
	normalizeRecipe(&recipe)
	if recipe.Name == "" {
		return RecipeDraft{}, prompt, raw, errors.New("recipe name is required")
	}
	if len(recipe.Ingredients) == 0 {
		return RecipeDraft{}, prompt, raw, errors.New("recipe ingredients are required")
	}
	if strings.EqualFold(recipe.Name, strings.TrimSpace(input.Current.Name)) {
		return RecipeDraft{}, prompt, raw, errors.New("replacement matches the current recipe")
	}

	return recipe, prompt, raw, nil
}

func (s *Service) chat(ctx context.Context, prompt string) (string, []byte, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	return s.client.Chat(ctx, messages)
}

func renderPrompt(name string, input interface{}) (string, error) {
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := struct {
		Input   interface{}
		Payload string
	}{Input: input, Payload: string(payload)}
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	return buf.String(), nil
}

func parseJSON(input string, target interface{}) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	return json.Unmarshal([]byte(payload), target)
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}

func normalizeRecipe(recipe *RecipeDraft) {
	recipe.ID = strings.TrimSpace(recipe.ID)
	recipe.Name = strings.TrimSpace(recipe.Name)

	mealTypes := make([]string, 0, len(recipe.MealTypes))
	for _, mealType := range recipe.MealTypes {
		if strings.TrimSpace(mealType) == "" {
			continue
		}
		mealTypes = append(mealTypes, string(models.ParseMealType(mealType)))
	}
	recipe.MealTypes = mealTypes
}

// normalizeMealPlanResponse приводит ответ к единому виду:
// рецепты без названия и записи расписания с неизвестным recipe_id отбрасываются.
func normalizeMealPlanResponse(response *MealPlanResponse) {
	recipes := make([]RecipeDraft, 0, len(response.Recipes))
	refs := make(map[string]string, len(response.Recipes)*2)

	for i := range response.Recipes {
		recipe := response.Recipes[i]
		normalizeRecipe(&recipe)
		if recipe.Name == "" {
			continue
		}
		if recipe.ID == "" {
			recipe.ID = "r" + strconv.Itoa(i+1)
		}
		if _, exists := refs[recipe.ID]; exists {
			continue
		}

		refs[recipe.ID] = recipe.ID
		// модели иногда ссылаются на рецепт по названию
		nameKey := strings.ToLower(recipe.Name)
		if _, exists := refs[nameKey]; !exists {
			refs[nameKey] = recipe.ID
		}
		recipes = append(recipes, recipe)
	}
	response.Recipes = recipes

	schedule := make([]ScheduleEntry, 0, len(response.Schedule))
	for _, entry := range response.Schedule {
		ref := strings.TrimSpace(entry.RecipeID)
		id, ok := refs[ref]
		if !ok {
			id, ok = refs[strings.ToLower(ref)]
		}
		if !ok {
			continue
		}

		entry.RecipeID = id
		entry.Day = strings.TrimSpace(entry.Day)
		entry.SlotLabel = strings.TrimSpace(entry.SlotLabel)
		entry.MealType = string(models.ParseMealType(entry.MealType))
		if entry.PortionMultiplier != nil && *entry.PortionMultiplier < 0 {
			entry.PortionMultiplier = nil
		}
		schedule = append(schedule, entry)
	}
	response.Schedule = schedule

	grocery := make([]GroceryItem, 0, len(response.GroceryList))
	for _, item := range response.GroceryList {
		item.Item = strings.TrimSpace(item.Item)
		item.Quantity = strings.TrimSpace(item.Quantity)
		if item.Item == "" {
			continue
		}
		grocery = append(grocery, item)
	}
	response.GroceryList = grocery
}

func validateMealPlanResponse(response MealPlanResponse) error {
	if len(response.Recipes) == 0 {
		return ErrEmptyPlan
	}

	for _, recipe := range response.Recipes {
		if len(recipe.Name) > 200 {
			return errors.New("recipe name is too long")
		}
	}

	return nil
}
