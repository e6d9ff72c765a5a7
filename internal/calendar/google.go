package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/models"
)

const googleCalendarID = "primary"

// GoogleOAuth wraps the OAuth2 flow for read-only Google Calendar access.
type GoogleOAuth struct {
	config *oauth2.Config
}

// NewGoogleOAuth создает OAuth-конфигурацию Google; без client id провайдер отключен.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	if strings.TrimSpace(clientID) == "" {
		return &GoogleOAuth{}
	}

	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gcal.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleOAuth) Enabled() bool {
	return g != nil && g.config != nil
}

// AuthCodeURL возвращает адрес согласия Google с переданным state.
func (g *GoogleOAuth) AuthCodeURL(state string) (string, error) {
	if !g.Enabled() {
		return "", ErrNotConfigured
	}
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange обменивает код авторизации на токен.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !g.Enabled() {
		return nil, ErrNotConfigured
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google oauth exchange: %w", err)
	}
	return token, nil
}

// Provider returns a Calendar API provider; the token source refreshes expired tokens.
func (g *GoogleOAuth) Provider(ctx context.Context, token *oauth2.Token) (*GoogleProvider, error) {
	if !g.Enabled() {
		return nil, ErrNotConfigured
	}

	service, err := gcal.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("google calendar client: %w", err)
	}
	return &GoogleProvider{service: service}, nil
}

func EncodeToken(token *oauth2.Token) (json.RawMessage, error) {
	return json.Marshal(token)
}

func DecodeToken(raw json.RawMessage) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode google token: %w", err)
	}
	return &token, nil
}

type GoogleProvider struct {
	service *gcal.Service
}

// FetchEvents читает события основного календаря в диапазоне [start, end).
func (p *GoogleProvider) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	events := make([]Event, 0)

	call := p.service.Events.List(googleCalendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if event, ok := googleEvent(item); ok {
				events = append(events, event)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google calendar events: %w", err)
	}

	return events, nil
}

func googleEvent(item *gcal.Event) (Event, bool) {
	if item == nil || item.Status == "cancelled" || item.Start == nil {
		return Event{}, false
	}

	event := Event{
		ID:       item.Id,
		Title:    item.Summary,
		Provider: models.CalendarProviderGoogle,
	}

	if item.Start.DateTime != "" {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return Event{}, false
		}
		event.Start = start
		if item.End != nil && item.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				event.End = end
			}
		}
		return event, true
	}

	start, err := time.Parse(dates.Layout, item.Start.Date)
	if err != nil {
		return Event{}, false
	}
	event.Start = start
	event.AllDay = true
	if item.End != nil && item.End.Date != "" {
		if end, err := time.Parse(dates.Layout, item.End.Date); err == nil {
			event.End = end
		}
	}
	return event, true
}
