// ABOUTME: Read-only Google Calendar client authenticated with a bearer access token
// ABOUTME: Lists calendars and the events of one calendar inside a time window
package gcal

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client builds a calendar service per access token. The zero value talks to Google.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different API root, e.g. an httptest server
// ("http://127.0.0.1:1234/calendar/v3/").
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient sets the transport used underneath the bearer token.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// ListCalendars returns every calendar-list entry visible to the token's account.
func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]*calendar.CalendarListEntry, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var entries []*calendar.CalendarListEntry
	pageToken := ""
	for {
		call := service.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, wrapError("list calendars", err)
		}
		entries = append(entries, list.Items...)
		if list.NextPageToken == "" {
			return entries, nil
		}
		pageToken = list.NextPageToken
	}
}

// ListEvents returns single (expanded) events of calendarID between timeMin and
// timeMax, ordered by start time. Both bounds are RFC 3339 strings.
func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var events []*calendar.Event
	pageToken := ""
	for {
		call := service.Events.List(calendarID).
			Context(ctx).
			TimeMin(timeMin).
			TimeMax(timeMax).
			SingleEvents(true).
			OrderBy("startTime")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, wrapError("list events", err)
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}
