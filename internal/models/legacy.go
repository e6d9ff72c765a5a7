package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// leadingAmount matches a mixed number, a fraction or a decimal at the start of a line.
var leadingAmount = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d*\.?\d+)\s*(.*)$`)

var unitWords = map[string]struct{}{
	"c": {}, "cup": {}, "cups": {},
	"tbsp": {}, "tbs": {}, "tablespoon": {}, "tablespoons": {},
	"tsp": {}, "teaspoon": {}, "teaspoons": {},
	"g": {}, "gram": {}, "grams": {}, "kg": {}, "kilogram": {}, "kilograms": {}, "mg": {},
	"lb": {}, "lbs": {}, "pound": {}, "pounds": {},
	"oz": {}, "ounce": {}, "ounces": {},
	"ml": {}, "l": {}, "liter": {}, "liters": {}, "litre": {}, "litres": {},
	"pint": {}, "pints": {}, "quart": {}, "quarts": {}, "gallon": {}, "gallons": {},
	"clove": {}, "cloves": {}, "can": {}, "cans": {}, "slice": {}, "slices": {},
	"pinch": {}, "pinches": {}, "dash": {}, "dashes": {}, "bunch": {}, "bunches": {},
	"package": {}, "packages": {}, "pkg": {}, "stick": {}, "sticks": {},
	"head": {}, "heads": {}, "sprig": {}, "sprigs": {}, "piece": {}, "pieces": {},
	"handful": {}, "handfuls": {}, "jar": {}, "jars": {}, "bottle": {}, "bottles": {},
}

// ParseLegacyList разбирает строковый список вида ['a', "b", 'c \'d\''] на элементы.
// Кавычки могут быть одинарными или двойными, обратный слэш экранирует следующий символ.
// Вложенные объекты {...} возвращаются одним элементом без изменений.
func ParseLegacyList(value string) []string {
	return splitLegacy(stripBrackets(value), ",")
}

func stripBrackets(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return trimmed[1 : len(trimmed)-1]
	}
	return trimmed
}

func splitLegacy(input string, separators string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		escaped bool
		quoted  bool
		depth   int
	)

	flush := func() {
		token := current.String()
		if !quoted {
			token = strings.TrimSpace(token)
		}
		if quoted || token != "" {
			tokens = append(tokens, token)
		}
		current.Reset()
		quoted = false
	}

	for _, r := range input {
		if depth > 0 {
			// raw copy; the object is parsed again later
			current.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case quote != 0:
				if r == '\\' {
					escaped = true
				} else if r == quote {
					quote = 0
				}
			case r == '\'' || r == '"':
				quote = r
			case r == '{':
				depth++
			case r == '}':
				depth--
			}
			continue
		}

		switch {
		case escaped:
			current.WriteRune(unescapeRune(r))
			escaped = false
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			if isStringPrefix(current.String()) {
				current.Reset()
			}
			quote = r
			quoted = true
		case r == '{':
			depth = 1
			current.WriteRune(r)
		case strings.ContainsRune(separators, r):
			flush()
		case unicode.IsSpace(r) && (quoted || current.Len() == 0):
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}

// isStringPrefix reports Python-style literal prefixes such as u'...'.
func isStringPrefix(value string) bool {
	switch strings.TrimSpace(value) {
	case "", "u", "U", "b", "B", "r", "R":
		return true
	default:
		return false
	}
}

func unescapeRune(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return r
	}
}

func parseLegacyObject(token string) RecipeIngredient {
	var ingredient RecipeIngredient
	if err := json.Unmarshal([]byte(token), &ingredient); err == nil {
		return ingredient
	}

	inner := strings.TrimSpace(token)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")
	parts := splitLegacy(inner, ",:")

	fields := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		value := strings.TrimSpace(parts[i+1])
		if value == "None" || value == "null" {
			value = ""
		}
		fields[strings.ToLower(strings.TrimSpace(parts[i]))] = value
	}

	return RecipeIngredient{
		Item:     firstNonEmpty(fields["item"], fields["ingredient"], fields["name"]),
		Quantity: firstNonEmpty(fields["quantity"], fields["amount"]),
		Unit:     strings.TrimSpace(fields["unit"]),
	}
}

// ParseIngredientLine разбирает свободную строку "2 cups flour" на количество и название.
func ParseIngredientLine(line string) RecipeIngredient {
	trimmed := strings.TrimSpace(line)
	match := leadingAmount.FindStringSubmatch(trimmed)
	if match == nil {
		return RecipeIngredient{Item: trimmed}
	}

	amount := strings.Join(strings.Fields(match[1]), " ")
	rest := strings.TrimSpace(match[2])
	words := strings.Fields(rest)

	quantity := amount
	item := rest
	if len(words) > 1 && isUnitWord(words[0]) {
		quantity = amount + " " + strings.TrimSuffix(words[0], ".")
		item = strings.Join(words[1:], " ")
	}

	item = strings.TrimSpace(strings.TrimPrefix(item, "of "))
	if item == "" {
		return RecipeIngredient{Item: trimmed}
	}

	return RecipeIngredient{Item: item, Quantity: quantity}
}

func isUnitWord(word string) bool {
	_, ok := unitWords[strings.ToLower(strings.TrimSuffix(word, "."))]
	return ok
}
