package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveDateWednesdayWeek проверяет окно недели, начинающейся в среду.
func TestResolveDateWednesdayWeek(t *testing.T) {
	weekOf := MustParse("2024-06-05") // Wednesday

	cases := map[string]string{
		"Monday":      "2024-06-10",
		"wednesday":   "2024-06-05",
		"  Tuesday  ": "2024-06-11",
		"SUNDAY":      "2024-06-09",
		"sat":         "2024-06-08",
		"Thu":         "2024-06-06",
	}

	for day, want := range cases {
		got, ok := ResolveDate(weekOf, day)
		require.True(t, ok, day)
		assert.Equal(t, want, got.String(), day)
	}
}

func TestResolveDateAlwaysInsideWindow(t *testing.T) {
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	start := MustParse("2024-01-01")

	for i := 0; i < 14; i++ {
		weekOf := start.AddDays(i)
		seen := make(map[string]struct{}, len(names))
		for _, name := range names {
			got, ok := ResolveDate(weekOf, name)
			require.True(t, ok)
			assert.True(t, IsDateWithinPlan(weekOf, got), "%s from %s", name, weekOf)
			seen[got.String()] = struct{}{}
		}
		assert.Len(t, seen, DaysInWeek)
	}
}

func TestResolveDateUnknown(t *testing.T) {
	weekOf := MustParse("2024-01-01")
	for _, day := range []string{"", "someday", "Mondays", "7", "-1", "Day 0", "Day 8", "day"} {
		_, ok := ResolveDate(weekOf, day)
		assert.False(t, ok, day)
	}

	_, ok := ResolveDate(Date{}, "Monday")
	assert.False(t, ok)
}

func TestResolveDateOffsets(t *testing.T) {
	weekOf := MustParse("2024-06-05")

	got, ok := ResolveDate(weekOf, "0")
	require.True(t, ok)
	assert.Equal(t, "2024-06-05", got.String())

	got, ok = ResolveDate(weekOf, "6")
	require.True(t, ok)
	assert.Equal(t, "2024-06-11", got.String())

	got, ok = ResolveDate(weekOf, "Day 3")
	require.True(t, ok)
	assert.Equal(t, "2024-06-07", got.String())
}

func TestDatesOverlap(t *testing.T) {
	a := MustParse("2024-01-01")

	assert.True(t, DatesOverlap(a, a))
	assert.True(t, DatesOverlap(a, MustParse("2024-01-07")))
	assert.False(t, DatesOverlap(a, MustParse("2024-01-08")))
	assert.True(t, DatesOverlap(a, MustParse("2023-12-26")))
	assert.False(t, DatesOverlap(a, MustParse("2023-12-25")))
}

func TestDatesOverlapSymmetric(t *testing.T) {
	base := MustParse("2024-02-20")
	for i := -10; i <= 10; i++ {
		for j := -10; j <= 10; j++ {
			a, b := base.AddDays(i), base.AddDays(j)
			assert.Equal(t, DatesOverlap(a, b), DatesOverlap(b, a), "%s %s", a, b)
		}
	}
}

func TestIsDateWithinPlan(t *testing.T) {
	weekOf := MustParse("2024-12-28")

	assert.True(t, IsDateWithinPlan(weekOf, weekOf))
	assert.True(t, IsDateWithinPlan(weekOf, MustParse("2025-01-03")))
	assert.False(t, IsDateWithinPlan(weekOf, MustParse("2025-01-04")))
	assert.False(t, IsDateWithinPlan(weekOf, MustParse("2024-12-27")))
}
