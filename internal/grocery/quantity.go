package grocery

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	mixedNumber   = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)`)
	fraction      = regexp.MustCompile(`^(\d+)/(\d+)`)
	decimal       = regexp.MustCompile(`^\d*\.?\d+`)
	vulgarMixed   = regexp.MustCompile(`^(\d*)\s*([½⅓⅔¼¾⅕⅖⅗⅘⅙⅚⅛⅜⅝⅞])`)
	rangeInfix    = regexp.MustCompile(`^\s*(?:-|–|to\s)\s*`)
	vulgarOrdinal = map[string]float64{
		"½": 1.0 / 2, "⅓": 1.0 / 3, "⅔": 2.0 / 3, "¼": 1.0 / 4, "¾": 3.0 / 4,
		"⅕": 1.0 / 5, "⅖": 2.0 / 5, "⅗": 3.0 / 5, "⅘": 4.0 / 5, "⅙": 1.0 / 6,
		"⅚": 5.0 / 6, "⅛": 1.0 / 8, "⅜": 3.0 / 8, "⅝": 5.0 / 8, "⅞": 7.0 / 8,
	}
)

type Quantity struct {
	Amount float64
	Unit   string
}

// ParseQuantity извлекает ведущее число и единицу измерения из строки количества.
// Строка без ведущего числа дает нулевое количество и пустую единицу.
// Для диапазона ("2-3 cups", "2 to 3 cups") берется верхняя граница.
func ParseQuantity(value string) Quantity {
	trimmed := strings.TrimSpace(value)

	amount, rest, ok := leadingNumber(trimmed)
	if !ok {
		return Quantity{}
	}

	if infix := rangeInfix.FindString(rest); infix != "" {
		if upper, tail, ok := leadingNumber(rest[len(infix):]); ok && upper >= amount {
			amount, rest = upper, tail
		}
	}

	return Quantity{Amount: amount, Unit: strings.TrimSpace(rest)}
}

func leadingNumber(value string) (float64, string, bool) {
	if m := vulgarMixed.FindStringSubmatch(value); m != nil {
		whole := 0.0
		if m[1] != "" {
			whole, _ = strconv.ParseFloat(m[1], 64)
		}
		return whole + vulgarOrdinal[m[2]], value[len(m[0]):], true
	}

	if m := mixedNumber.FindStringSubmatch(value); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		if part, ok := ratio(m[2], m[3]); ok {
			return whole + part, value[len(m[0]):], true
		}
	}

	if m := fraction.FindStringSubmatch(value); m != nil {
		if part, ok := ratio(m[1], m[2]); ok {
			return part, value[len(m[0]):], true
		}
	}

	if m := decimal.FindString(value); m != "" {
		amount, err := strconv.ParseFloat(m, 64)
		if err == nil {
			return amount, value[len(m):], true
		}
	}

	return 0, "", false
}

func ratio(numerator, denominator string) (float64, bool) {
	n, err := strconv.ParseFloat(numerator, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(denominator, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}
