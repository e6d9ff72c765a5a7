package calendar

import (
	"context"
	"errors"
	"time"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

var ErrNotConfigured = errors.New("calendar provider is not configured")

// Event is a busy slot read from an external calendar.
type Event struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Start    time.Time               `json:"start"`
	End      time.Time               `json:"end"`
	AllDay   bool                    `json:"all_day"`
	Provider models.CalendarProvider `json:"provider"`
}

type Provider interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error)
}

// BusyDays считает события по дням окна плана; индекс 0 соответствует weekOf.
// Событие на несколько дней учитывается в каждом из них.
func BusyDays(events []Event, weekOf dates.Date, loc *time.Location) [dates.DaysInWeek]int {
	var busy [dates.DaysInWeek]int
	if weekOf.IsZero() {
		return busy
	}
	if loc == nil {
		loc = time.UTC
	}
	weekEnd := dates.WeekEnd(weekOf)

	for _, event := range events {
		first, last := eventDays(event, loc)
		if first.Before(weekOf) {
			first = weekOf
		}
		if last.After(weekEnd) {
			last = weekEnd
		}
		for day := first; !day.After(last); day = day.AddDays(1) {
			busy[day.DaysSince(weekOf)]++
		}
	}

	return busy
}

// eventDays returns the first and last calendar day an event touches.
func eventDays(event Event, loc *time.Location) (dates.Date, dates.Date) {
	if event.AllDay {
		// all-day events are stored as date values with an exclusive end
		first := dates.Of(event.Start.UTC())
		last := first
		if !event.End.IsZero() {
			if end := dates.Of(event.End.UTC()).AddDays(-1); end.After(first) {
				last = end
			}
		}
		return first, last
	}

	first := dates.Of(event.Start.In(loc))
	last := first
	if event.End.After(event.Start) {
		// an end at exactly midnight does not occupy the next day
		if end := dates.Of(event.End.Add(-time.Nanosecond).In(loc)); end.After(first) {
			last = end
		}
	}
	return first, last
}
