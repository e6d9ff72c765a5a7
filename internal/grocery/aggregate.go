package grocery

import (
	"sort"
	"strings"

	"example.com/ai-meal-planner/backend/internal/models"
)

// Key identifies grocery rows that must be summed together.
type Key struct {
	Name string
	Unit string
}

// NormalizeName возвращает ключ названия ингредиента: нижний регистр без краевых пробелов.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// KeyOf строит ключ агрегации; единица сравнивается точно.
func KeyOf(name, unit string) Key {
	return Key{Name: NormalizeName(name), Unit: strings.TrimSpace(unit)}
}

// Occurrence is one scheduled use of a recipe with its portion multiplier.
// The multiplier is taken as is; defaults are resolved when the entry is loaded.
type Occurrence struct {
	Recipe            *models.Recipe
	PortionMultiplier float64
}

type Result struct {
	Items []models.CalculatedGroceryItem `json:"items"`
	// Unquantified lists ingredients without a leading amount, e.g. "salt" for "to taste".
	Unquantified []string `json:"unquantified"`
}

// OccurrencesFromEntries собирает вхождения из записей плана, пропуская записи без рецепта.
func OccurrencesFromEntries(entries []models.MealPlanRecipe) []Occurrence {
	out := make([]Occurrence, 0, len(entries))
	for _, entry := range entries {
		if entry.Recipe == nil {
			continue
		}
		out = append(out, Occurrence{Recipe: entry.Recipe, PortionMultiplier: entry.PortionMultiplier})
	}
	return out
}

// Aggregate сводит ингредиенты всех вхождений в список покупок.
func Aggregate(occurrences []Occurrence) []models.CalculatedGroceryItem {
	return AggregateDetailed(occurrences).Items
}

// AggregateDetailed работает как Aggregate и дополнительно возвращает
// ингредиенты без числового количества.
func AggregateDetailed(occurrences []Occurrence) Result {
	totals := make(map[Key]*models.CalculatedGroceryItem)
	order := make([]Key, 0)
	unquantified := make(map[string]string)

	for _, occurrence := range occurrences {
		if occurrence.Recipe == nil {
			continue
		}

		for _, ingredient := range occurrence.Recipe.Ingredients {
			name := strings.TrimSpace(ingredient.Item)
			if name == "" {
				continue
			}

			parsed := ParseQuantity(ingredient.Quantity)
			unit := parsed.Unit
			if explicit := strings.TrimSpace(ingredient.Unit); explicit != "" {
				unit = explicit
			}

			if parsed.Amount <= 0 {
				normalized := NormalizeName(name)
				if _, seen := unquantified[normalized]; !seen {
					unquantified[normalized] = name
				}
				continue
			}

			amount := parsed.Amount * occurrence.PortionMultiplier
			if amount <= 0 {
				continue
			}

			key := KeyOf(name, unit)
			row, ok := totals[key]
			if !ok {
				row = &models.CalculatedGroceryItem{ItemName: name, Unit: key.Unit}
				totals[key] = row
				order = append(order, key)
			}
			row.Quantity += amount
		}
	}

	items := make([]models.CalculatedGroceryItem, 0, len(order))
	quantified := make(map[string]struct{}, len(order))
	for _, key := range order {
		items = append(items, *totals[key])
		quantified[key.Name] = struct{}{}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ItemName != items[j].ItemName {
			return items[i].ItemName < items[j].ItemName
		}
		return items[i].Unit < items[j].Unit
	})

	names := make([]string, 0, len(unquantified))
	for normalized, display := range unquantified {
		if _, ok := quantified[normalized]; ok {
			continue
		}
		names = append(names, display)
	}
	sort.Strings(names)

	return Result{Items: items, Unquantified: names}
}
