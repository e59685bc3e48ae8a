// ABOUTME: OAuth configuration for Google sign-in and token refresh
// ABOUTME: Scopes, endpoints, and shared options for the refresher and sign-in flow
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harperreed/weekcal/config"
)

// CallbackPath is the loopback redirect path registered with Google.
const CallbackPath = "/oauth2callback"

// Scopes requested at sign-in. All are read-only.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Endpoints are the Google URLs the auth package talks to.
type Endpoints struct {
	OAuth oauth2.Endpoint
	// UserInfoAPI is the root of the oauth2/v2 API (userinfo lives at oauth2/v2/userinfo below it).
	UserInfoAPI string
	// OIDCUserInfo is the OpenID Connect userinfo endpoint.
	OIDCUserInfo string
	// CalendarAPI is the root of the calendar/v3 API used as the last identity fallback.
	CalendarAPI string
}

// DefaultEndpoints returns the production Google endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OAuth:        google.Endpoint,
		UserInfoAPI:  "https://www.googleapis.com/",
		OIDCUserInfo: "https://openidconnect.googleapis.com/v1/userinfo",
		CalendarAPI:  "https://www.googleapis.com/calendar/v3/",
	}
}

// Option configures a Refresher or a Flow.
type Option func(*options)

type options struct {
	endpoints  Endpoints
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
	opener     BrowserOpener
	timeout    time.Duration
}

func defaultOptions() options {
	return options{
		endpoints: DefaultEndpoints(),
		now:       time.Now,
		logger:    slog.Default(),
		opener:    OpenBrowser,
		timeout:   5 * time.Minute,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEndpoints overrides every Google URL.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) { o.endpoints = e }
}

// WithHTTPClient sets the client used for token, userinfo, and calendar requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBrowserOpener replaces the function that opens the consent page.
func WithBrowserOpener(b BrowserOpener) Option {
	return func(o *options) { o.opener = b }
}

// WithTimeout changes how long sign-in waits for the browser callback.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// NewOAuthConfig builds the oauth2.Config for the given settings and redirect URL.
// Client credentials are sent in the form body.
func NewOAuthConfig(s config.Settings, endpoint oauth2.Endpoint, redirectURL string) *oauth2.Config {
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     strings.TrimSpace(s.GoogleClientID),
		ClientSecret: strings.TrimSpace(s.GoogleClientSecret),
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

func (o options) context(ctx context.Context) context.Context {
	if o.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

// expiryMillis computes the stored expiry for a fresh token, defaulting to one hour.
func expiryMillis(tok *oauth2.Token, now time.Time) int64 {
	if tok.ExpiresIn > 0 {
		return now.Add(time.Duration(tok.ExpiresIn) * time.Second).UnixMilli()
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.UnixMilli()
	}
	return now.Add(time.Hour).UnixMilli()
}
