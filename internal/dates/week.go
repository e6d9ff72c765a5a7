package dates

import (
	"strconv"
	"strings"
	"time"
)

// DaysInWeek is the fixed length of a plan window.
const DaysInWeek = 7

var dayIndex = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// WeekEnd возвращает последний день недельного окна.
func WeekEnd(weekOf Date) Date {
	return weekOf.AddDays(DaysInWeek - 1)
}

// ParseWeekday maps a day name (full or abbreviated, any case) to its weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := dayIndex[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

// ResolveDate возвращает дату внутри окна [weekOf, weekOf+6], соответствующую дню.
// Неделя плана может начинаться с любого дня недели.
func ResolveDate(weekOf Date, day string) (Date, bool) {
	if weekOf.IsZero() {
		return Date{}, false
	}

	if offset, ok := parseOffset(day); ok {
		return weekOf.AddDays(offset), true
	}

	target, ok := ParseWeekday(day)
	if !ok {
		return Date{}, false
	}

	offset := int(target) - int(weekOf.Weekday())
	if offset < 0 {
		offset += DaysInWeek
	}

	return weekOf.AddDays(offset), true
}

// parseOffset accepts "0".."6" as a zero-based offset and "Day 1".."Day 7" as a slot label.
func parseOffset(value string) (int, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	base := 0
	if rest, ok := strings.CutPrefix(trimmed, "day"); ok {
		trimmed = strings.TrimSpace(rest)
		base = 1
		if trimmed == "" {
			return 0, false
		}
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}

	offset := n - base
	if offset < 0 || offset >= DaysInWeek {
		return 0, false
	}
	return offset, true
}

// DatesOverlap сообщает, пересекаются ли недельные окна двух планов.
func DatesOverlap(weekOf1, weekOf2 Date) bool {
	return !weekOf1.After(WeekEnd(weekOf2)) && !weekOf2.After(WeekEnd(weekOf1))
}

// IsDateWithinPlan сообщает, попадает ли day в окно плана (включительно).
func IsDateWithinPlan(weekOf, day Date) bool {
	return !day.Before(weekOf) && !day.After(WeekEnd(weekOf))
}

// ShortWeekday returns the 3-letter English abbreviation.
func ShortWeekday(day time.Weekday) string {
	return day.String()[:3]
}
