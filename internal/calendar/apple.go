package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"example.com/ai-meal-planner/backend/internal/models"
)

const DefaultAppleServerURL = "https://caldav.icloud.com"

// AppleProvider reads iCloud calendars over CalDAV with an app-specific password.
type AppleProvider struct {
	client *caldav.Client
}

// NewAppleProvider создает CalDAV-клиент с basic-авторизацией.
func NewAppleProvider(serverURL, username, password string, timeout time.Duration) (*AppleProvider, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("apple id and app password are required")
	}
	if strings.TrimSpace(serverURL) == "" {
		serverURL = DefaultAppleServerURL
	}

	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: timeout}, username, password)
	client, err := caldav.NewClient(httpClient, serverURL)
	if err != nil {
		return nil, fmt.Errorf("caldav client: %w", err)
	}

	return &AppleProvider{client: client}, nil
}

// Verify проверяет учетные данные, находя домашний набор календарей.
func (p *AppleProvider) Verify(ctx context.Context) error {
	_, err := p.calendarHome(ctx)
	return err
}

// FetchEvents читает VEVENT из всех календарей пользователя в диапазоне [start, end).
func (p *AppleProvider) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	home, err := p.calendarHome(ctx)
	if err != nil {
		return nil, err
	}

	calendars, err := p.client.FindCalendars(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("caldav calendars: %w", err)
	}

	query := eventQuery(start, end)
	events := make([]Event, 0)
	for _, cal := range calendars {
		if !supportsEvents(cal) {
			continue
		}

		objects, err := p.client.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			return nil, fmt.Errorf("caldav query %s: %w", cal.Path, err)
		}
		for _, object := range objects {
			events = append(events, icalEvents(object.Data)...)
		}
	}

	return events, nil
}

func (p *AppleProvider) calendarHome(ctx context.Context) (string, error) {
	principal, err := p.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("caldav principal: %w", err)
	}

	home, err := p.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("caldav home set: %w", err)
	}
	return home, nil
}

func eventQuery(start, end time.Time) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:  ical.CompEvent,
				Props: []string{ical.PropUID, ical.PropSummary, ical.PropDateTimeStart, ical.PropDateTimeEnd, ical.PropDuration},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}
}

func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if strings.EqualFold(comp, ical.CompEvent) {
			return true
		}
	}
	return false
}

// icalEvents converts the VEVENTs of one calendar object; events without a start are skipped.
func icalEvents(cal *ical.Calendar) []Event {
	if cal == nil {
		return nil
	}

	events := make([]Event, 0)
	for _, item := range cal.Events() {
		start, err := item.DateTimeStart(time.UTC)
		if err != nil || start.IsZero() {
			continue
		}

		event := Event{
			Start:    start,
			Provider: models.CalendarProviderApple,
		}
		if end, err := item.DateTimeEnd(time.UTC); err == nil {
			event.End = end
		}
		if uid := item.Props.Get(ical.PropUID); uid != nil {
			event.ID = uid.Value
		}
		if summary, err := item.Props.Text(ical.PropSummary); err == nil {
			event.Title = summary
		}
		if prop := item.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
			event.AllDay = true
		}

		events = append(events, event)
	}

	return events
}
