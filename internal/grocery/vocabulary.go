package grocery

import (
	"sort"
	"strings"
)

const categoryOther = "Other"

// Vocabulary is the fixed set of ingredients users may reference, with store categories.
type Vocabulary struct {
	entries  map[string]string
	keywords []string
}

// NewVocabulary строит словарь ингредиентов; ключи нормализуются.
func NewVocabulary(entries map[string]string) *Vocabulary {
	normalized := make(map[string]string, len(entries))
	keywords := make([]string, 0, len(entries))
	for name, category := range entries {
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if _, exists := normalized[key]; !exists {
			keywords = append(keywords, key)
		}
		normalized[key] = category
	}

	// longer keywords first so "green onion" wins over "onion"
	sort.Slice(keywords, func(i, j int) bool {
		if len(keywords[i]) != len(keywords[j]) {
			return len(keywords[i]) > len(keywords[j])
		}
		return keywords[i] < keywords[j]
	})

	return &Vocabulary{entries: normalized, keywords: keywords}
}

// DefaultVocabulary возвращает встроенный словарь ингредиентов.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultIngredients)
}

// Allowed сообщает, входит ли ингредиент в словарь.
func (v *Vocabulary) Allowed(name string) bool {
	_, ok := v.lookup(name)
	return ok
}

// Unknown возвращает названия, не прошедшие Allowed, в исходном порядке.
func (v *Vocabulary) Unknown(names []string) []string {
	out := make([]string, 0)
	for _, name := range names {
		if !v.Allowed(name) {
			out = append(out, strings.TrimSpace(name))
		}
	}
	return out
}

// Category возвращает отдел магазина: точное совпадение, затем вхождение подстроки.
func (v *Vocabulary) Category(name string) string {
	if category, ok := v.lookup(name); ok {
		return category
	}

	normalized := NormalizeName(name)
	if normalized == "" {
		return categoryOther
	}
	for _, keyword := range v.keywords {
		if strings.Contains(normalized, keyword) {
			return v.entries[keyword]
		}
	}

	return categoryOther
}

func (v *Vocabulary) lookup(name string) (string, bool) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return "", false
	}

	if category, ok := v.entries[normalized]; ok {
		return category, true
	}

	for _, singular := range singularForms(normalized) {
		if category, ok := v.entries[singular]; ok {
			return category, true
		}
	}

	return "", false
}

func singularForms(name string) []string {
	out := make([]string, 0, 3)
	if strings.HasSuffix(name, "ies") {
		out = append(out, strings.TrimSuffix(name, "ies")+"y")
	}
	if strings.HasSuffix(name, "es") {
		out = append(out, strings.TrimSuffix(name, "es"))
	}
	if strings.HasSuffix(name, "s") {
		out = append(out, strings.TrimSuffix(name, "s"))
	}
	return out
}

var defaultIngredients = map[string]string{
	// Produce
	"apple": "Produce", "avocado": "Produce", "banana": "Produce", "basil": "Produce",
	"bell pepper": "Produce", "blueberry": "Produce", "broccoli": "Produce", "cabbage": "Produce",
	"carrot": "Produce", "cauliflower": "Produce", "celery": "Produce", "cilantro": "Produce",
	"corn": "Produce", "cucumber": "Produce", "eggplant": "Produce", "garlic": "Produce",
	"ginger": "Produce", "green bean": "Produce", "green onion": "Produce", "kale": "Produce",
	"lemon": "Produce", "lettuce": "Produce", "lime": "Produce", "mushroom": "Produce",
	"onion": "Produce", "parsley": "Produce", "pea": "Produce", "potato": "Produce",
	"spinach": "Produce", "strawberry": "Produce", "sweet potato": "Produce", "tomato": "Produce",
	"zucchini": "Produce",

	// Dairy
	"butter": "Dairy", "cheddar": "Dairy", "cheese": "Dairy", "cream": "Dairy",
	"cream cheese": "Dairy", "egg": "Dairy", "feta": "Dairy", "milk": "Dairy",
	"mozzarella": "Dairy", "parmesan": "Dairy", "ricotta": "Dairy", "sour cream": "Dairy",
	"yogurt": "Dairy",

	// Meat & Seafood
	"bacon": "Meat & Seafood", "beef": "Meat & Seafood", "chicken": "Meat & Seafood",
	"chicken breast": "Meat & Seafood", "chicken thigh": "Meat & Seafood", "cod": "Meat & Seafood",
	"ground beef": "Meat & Seafood", "ground turkey": "Meat & Seafood", "ham": "Meat & Seafood",
	"lamb": "Meat & Seafood", "pork": "Meat & Seafood", "salmon": "Meat & Seafood",
	"sausage": "Meat & Seafood", "shrimp": "Meat & Seafood", "tuna": "Meat & Seafood",
	"turkey": "Meat & Seafood",

	// Bakery
	"bagel": "Bakery", "bread": "Bakery", "bun": "Bakery", "pita": "Bakery", "tortilla": "Bakery",

	// Pantry
	"beans": "Pantry", "black beans": "Pantry", "broth": "Pantry", "brown sugar": "Pantry",
	"chickpea": "Pantry", "coconut milk": "Pantry", "flour": "Pantry", "honey": "Pantry",
	"lasagna noodles": "Pantry", "lentil": "Pantry", "maple syrup": "Pantry", "mayonnaise": "Pantry",
	"noodle": "Pantry", "oat": "Pantry", "olive oil": "Pantry", "pasta": "Pantry",
	"peanut butter": "Pantry", "quinoa": "Pantry", "rice": "Pantry", "soy sauce": "Pantry",
	"sugar": "Pantry", "tofu": "Pantry", "tomato sauce": "Pantry", "vegetable oil": "Pantry",
	"vinegar": "Pantry",

	// Frozen
	"frozen peas": "Frozen", "frozen berries": "Frozen", "ice cream": "Frozen",

	// Spices
	"black pepper": "Spices", "chili powder": "Spices", "cinnamon": "Spices", "cumin": "Spices",
	"oregano": "Spices", "paprika": "Spices", "pepper": "Spices", "salt": "Spices",
	"thyme": "Spices",
}
