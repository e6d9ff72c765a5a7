package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type RecipeIngredient struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// UnmarshalJSON accepts the legacy "ingredient" name field and numeric quantities.
func (i *RecipeIngredient) UnmarshalJSON(data []byte) error {
	var raw struct {
		Item       string          `json:"item"`
		Ingredient string          `json:"ingredient"`
		Name       string          `json:"name"`
		Quantity   json.RawMessage `json:"quantity"`
		Amount     json.RawMessage `json:"amount"`
		Unit       string          `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	quantity := quantityText(raw.Quantity)
	if quantity == "" {
		quantity = quantityText(raw.Amount)
	}

	*i = RecipeIngredient{
		Item:     firstNonEmpty(raw.Item, raw.Ingredient, raw.Name),
		Quantity: quantity,
		Unit:     strings.TrimSpace(raw.Unit),
	}
	return nil
}

// quantityText coerces a JSON string or number into quantity text.
func quantityText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var number float64
	if err := json.Unmarshal(trimmed, &number); err == nil {
		return strconv.FormatFloat(number, 'f', -1, 64)
	}

	return ""
}

// IngredientList is either a structured JSON array or a legacy string-encoded list.
type IngredientList []RecipeIngredient

func (l IngredientList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]RecipeIngredient(l))
}

func (l *IngredientList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*l = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return err
		}
		out := make(IngredientList, 0, len(elements))
		for _, element := range elements {
			ingredient, ok := decodeIngredientElement(element)
			if ok {
				out = append(out, ingredient)
			}
		}
		*l = out
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		*l = parseLegacyIngredients(encoded)
	default:
		// null, numbers and bare objects carry no usable list
		*l = nil
	}

	return nil
}

func decodeIngredientElement(element json.RawMessage) (RecipeIngredient, bool) {
	trimmed := bytes.TrimSpace(element)
	if len(trimmed) == 0 {
		return RecipeIngredient{}, false
	}

	switch trimmed[0] {
	case '{':
		var ingredient RecipeIngredient
		if err := json.Unmarshal(trimmed, &ingredient); err != nil {
			return RecipeIngredient{}, false
		}
		return ingredient, strings.TrimSpace(ingredient.Item) != ""
	case '"':
		var line string
		if err := json.Unmarshal(trimmed, &line); err != nil {
			return RecipeIngredient{}, false
		}
		return ingredientFromToken(line)
	default:
		return RecipeIngredient{}, false
	}
}

func parseLegacyIngredients(encoded string) IngredientList {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") && json.Valid([]byte(trimmed)) {
		var list IngredientList
		if err := list.UnmarshalJSON([]byte(trimmed)); err == nil {
			return list
		}
	}

	tokens := ParseLegacyList(trimmed)
	out := make(IngredientList, 0, len(tokens))
	for _, token := range tokens {
		ingredient, ok := ingredientFromToken(token)
		if ok {
			out = append(out, ingredient)
		}
	}
	return out
}

func ingredientFromToken(token string) (RecipeIngredient, bool) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return RecipeIngredient{}, false
	}

	if strings.HasPrefix(trimmed, "{") {
		ingredient := parseLegacyObject(trimmed)
		return ingredient, strings.TrimSpace(ingredient.Item) != ""
	}

	return ParseIngredientLine(trimmed), true
}

// StepList is either a JSON array of strings or a legacy string-encoded list.
type StepList []string

func (l StepList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StepList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*l = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return err
		}
		out := make(StepList, 0, len(elements))
		for _, element := range elements {
			var step string
			if err := json.Unmarshal(element, &step); err != nil {
				step = string(bytes.TrimSpace(element))
			}
			if step = strings.TrimSpace(step); step != "" {
				out = append(out, step)
			}
		}
		*l = out
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		*l = parseLegacySteps(encoded)
	default:
		*l = nil
	}

	return nil
}

func parseLegacySteps(encoded string) StepList {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return nil
	}

	var tokens []string
	if strings.HasPrefix(trimmed, "[") {
		tokens = ParseLegacyList(trimmed)
	} else {
		tokens = strings.Split(trimmed, "\n")
	}

	out := make(StepList, 0, len(tokens))
	for _, token := range tokens {
		if step := strings.TrimSpace(token); step != "" {
			out = append(out, step)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
