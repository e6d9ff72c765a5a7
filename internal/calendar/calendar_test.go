package calendar

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

// TestBusyDays проверяет подсчет событий по дням окна плана.
func TestBusyDays(t *testing.T) {
	weekOf := dates.MustParse("2024-06-05")
	events := []Event{
		{Start: time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 5, 19, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 6, 5, 20, 0, 0, 0, time.UTC)},
		// all-day, two days, exclusive end
		{Start: time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), AllDay: true},
		// ends exactly at midnight
		{Start: time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)},
	}

	busy := BusyDays(events, weekOf, time.UTC)
	assert.Equal(t, [7]int{2, 0, 1, 1, 0, 1, 0}, busy)
}

func TestBusyDaysClampsLongEvents(t *testing.T) {
	weekOf := dates.MustParse("2024-06-05")
	events := []Event{
		// a years-long span only counts inside the plan window
		{Start: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(9000, 1, 1, 0, 0, 0, 0, time.UTC), AllDay: true},
		{Start: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), End: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)},
		{Start: time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC)},
	}

	busy := BusyDays(events, weekOf, time.UTC)
	assert.Equal(t, [7]int{1, 1, 1, 1, 1, 2, 2}, busy)
}

func TestBusyDaysUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	weekOf := dates.MustParse("2024-06-05")

	// 02:00 UTC on Thursday is still Wednesday evening at UTC-5
	events := []Event{{Start: time.Date(2024, 6, 6, 2, 0, 0, 0, time.UTC)}}

	assert.Equal(t, 1, BusyDays(events, weekOf, loc)[0])
	assert.Equal(t, 1, BusyDays(events, weekOf, nil)[1])
	assert.Equal(t, [7]int{}, BusyDays(events, dates.Date{}, loc))
}

func TestGoogleEvent(t *testing.T) {
	timed, ok := googleEvent(&gcal.Event{
		Id:      "a",
		Summary: "Standup",
		Start:   &gcal.EventDateTime{DateTime: "2024-06-05T09:00:00+02:00"},
		End:     &gcal.EventDateTime{DateTime: "2024-06-05T09:15:00+02:00"},
	})
	require.True(t, ok)
	assert.Equal(t, "Standup", timed.Title)
	assert.False(t, timed.AllDay)
	assert.Equal(t, 15*time.Minute, timed.End.Sub(timed.Start))
	assert.Equal(t, models.CalendarProviderGoogle, timed.Provider)

	allDay, ok := googleEvent(&gcal.Event{
		Start: &gcal.EventDateTime{Date: "2024-06-07"},
		End:   &gcal.EventDateTime{Date: "2024-06-08"},
	})
	require.True(t, ok)
	assert.True(t, allDay.AllDay)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), allDay.Start)

	_, ok = googleEvent(&gcal.Event{Status: "cancelled", Start: &gcal.EventDateTime{Date: "2024-06-07"}})
	assert.False(t, ok)
	_, ok = googleEvent(&gcal.Event{})
	assert.False(t, ok)
}

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-1\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"SUMMARY:Dentist\r\n" +
	"DTSTART:20240605T150000Z\r\n" +
	"DTEND:20240605T160000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-2\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"SUMMARY:Holiday\r\n" +
	"DTSTART;VALUE=DATE:20240607\r\n" +
	"DTEND;VALUE=DATE:20240608\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestICalEvents(t *testing.T) {
	cal, err := ical.NewDecoder(strings.NewReader(sampleICS)).Decode()
	require.NoError(t, err)

	events := icalEvents(cal)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "Dentist", events[0].Title)
	assert.Equal(t, time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC), events[0].Start.UTC())
	assert.False(t, events[0].AllDay)
	assert.Equal(t, models.CalendarProviderApple, events[0].Provider)

	assert.True(t, events[1].AllDay)
	assert.Equal(t, [7]int{1, 0, 1, 0, 0, 0, 0}, BusyDays(events, dates.MustParse("2024-06-05"), time.UTC))

	assert.Nil(t, icalEvents(nil))
}

func TestEventQueryAndComponents(t *testing.T) {
	start := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	query := eventQuery(start, start.AddDate(0, 0, 7))

	require.Len(t, query.CompFilter.Comps, 1)
	assert.Equal(t, ical.CompEvent, query.CompFilter.Comps[0].Name)
	assert.Equal(t, start, query.CompFilter.Comps[0].Start)

	assert.True(t, supportsEvents(caldav.Calendar{}))
	assert.True(t, supportsEvents(caldav.Calendar{SupportedComponentSet: []string{"VTODO", "vevent"}}))
	assert.False(t, supportsEvents(caldav.Calendar{SupportedComponentSet: []string{"VTODO"}}))
}

func TestNewAppleProviderRequiresCredentials(t *testing.T) {
	_, err := NewAppleProvider("", "", "secret", time.Second)
	assert.Error(t, err)

	provider, err := NewAppleProvider("", "me@icloud.com", "abcd-efgh", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestGoogleOAuth(t *testing.T) {
	disabled := NewGoogleOAuth("", "", "")
	assert.False(t, disabled.Enabled())
	_, err := disabled.AuthCodeURL("state")
	assert.ErrorIs(t, err, ErrNotConfigured)

	oauth := NewGoogleOAuth("client", "secret", "http://localhost/api/v1/calendar/google/callback")
	require.True(t, oauth.Enabled())

	link, err := oauth.AuthCodeURL("signed-state")
	require.NoError(t, err)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "client", parsed.Query().Get("client_id"))
	assert.Equal(t, "signed-state", parsed.Query().Get("state"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Contains(t, parsed.Query().Get("scope"), "calendar.readonly")
}

// TestCachePassThrough проверяет работу без Redis.
func TestCachePassThrough(t *testing.T) {
	cache, err := NewCache(context.Background(), "", time.Minute)
	require.NoError(t, err)
	assert.False(t, cache.Enabled())

	calls := 0
	load := func(context.Context) ([]Event, error) {
		calls++
		return []Event{{ID: "x"}}, nil
	}

	for i := 0; i < 2; i++ {
		events, err := cache.Fetch(context.Background(), uuid.New(), models.CalendarProviderGoogle, time.Now(), time.Now(), load)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	}
	assert.Equal(t, 2, calls)

	_, err = cache.Fetch(context.Background(), uuid.New(), models.CalendarProviderApple, time.Now(), time.Now(), func(context.Context) ([]Event, error) {
		return nil, errors.New("down")
	})
	assert.Error(t, err)

	assert.NoError(t, cache.Invalidate(context.Background(), uuid.New(), models.CalendarProviderGoogle))
	assert.NoError(t, cache.Close())

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
}

func TestCacheKey(t *testing.T) {
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	start := time.Unix(100, 0)
	key := cacheKey(userID, models.CalendarProviderApple, start, start.Add(time.Second))
	assert.Equal(t, "calendar:events:11111111-1111-1111-1111-111111111111:apple:100:101", key)

	_, err := NewCache(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
