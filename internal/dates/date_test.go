package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseKeepsCalendarDay проверяет, что суффикс времени не сдвигает день.
func TestParseKeepsCalendarDay(t *testing.T) {
	cases := []string{
		"2024-01-03",
		" 2024-01-03 ",
		"2024-01-03T00:00:00Z",
		"2024-01-03T23:30:00-08:00",
		"2024-01-03T00:00:00.000+14:00",
		"2024-01-03 18:00:00",
	}

	for _, value := range cases {
		d, err := Parse(value)
		require.NoError(t, err, value)
		assert.Equal(t, "2024-01-03", d.String(), value)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, value := range []string{"", "2024/01/03", "03-01-2024", "2024-13-01", "tomorrow"} {
		_, err := Parse(value)
		assert.Error(t, err, value)
	}
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "2024-03-01", MustParse("2024-02-28").AddDays(2).String())
	assert.Equal(t, "2025-01-02", MustParse("2024-12-30").AddDays(3).String())
	// DST change in most northern zones; calendar arithmetic must not care.
	assert.Equal(t, "2024-03-16", MustParse("2024-03-09").AddDays(7).String())
}

func TestOfUsesLocalCalendarFields(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2024, 6, 5, 22, 0, 0, 0, loc)

	assert.Equal(t, "2024-06-05", Of(instant).String())
	assert.Equal(t, "2024-06-06", Of(instant.UTC()).String())
}

func TestDateJSONRoundTrip(t *testing.T) {
	type payload struct {
		WeekOf  Date  `json:"week_of"`
		Planned *Date `json:"planned"`
	}

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"week_of":"2024-01-01","planned":"2024-01-03T00:00:00.000Z"}`), &decoded))
	require.NotNil(t, decoded.Planned)
	assert.Equal(t, "2024-01-03", decoded.Planned.String())

	encoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, `{"week_of":"2024-01-01","planned":"2024-01-03"}`, string(encoded))
}

func TestZeroDateMarshalsNull(t *testing.T) {
	encoded, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(encoded))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
}

func TestDaysSince(t *testing.T) {
	assert.Equal(t, 6, MustParse("2024-01-07").DaysSince(MustParse("2024-01-01")))
	assert.Equal(t, -1, MustParse("2023-12-31").DaysSince(MustParse("2024-01-01")))
}
