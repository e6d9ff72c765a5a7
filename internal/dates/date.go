package dates

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Layout is the wire format for week anchors and planned dates.
const Layout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone attached.
// The zero value means "no date".
type Date struct {
	// always midnight UTC; only year/month/day carry meaning
	t time.Time
}

// New возвращает дату по календарным полям.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of возвращает календарную дату момента t в его собственной зоне.
func Of(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	year, month, day := t.Date()
	return New(year, month, day)
}

// Today возвращает сегодняшнюю дату в указанной зоне.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Of(time.Now().In(loc))
}

// Parse разбирает YYYY-MM-DD с необязательным суффиксом времени.
// Суффикс отбрасывается: берется календарный день в том виде, как он записан.
func Parse(value string) (Date, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) > len(Layout) {
		switch trimmed[len(Layout)] {
		case 'T', 't', ' ':
			trimmed = trimmed[:len(Layout)]
		}
	}

	parsed, err := time.Parse(Layout, trimmed)
	if err != nil {
		return Date{}, errors.New("date must be in YYYY-MM-DD format")
	}

	return Of(parsed), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(value string) Date {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// Time возвращает полночь UTC этой даты (для колонок типа date).
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

// AddDays сдвигает дату по календарю, без учета часовых поясов.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// DaysSince returns the number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}

	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
