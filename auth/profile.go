// ABOUTME: Resolves the email and picture behind a fresh access token
// ABOUTME: Tries the userinfo API, then OIDC userinfo, then the primary calendar id
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/harperreed/weekcal/gcal"
)

// Identity is who an access token belongs to.
type Identity struct {
	Email   string
	Picture string
}

// ResolveIdentity looks up the account behind accessToken.
// Email is empty when every source failed.
func ResolveIdentity(ctx context.Context, accessToken string, opts ...Option) Identity {
	return buildOptions(opts).resolveIdentity(ctx, accessToken)
}

func (o options) resolveIdentity(ctx context.Context, accessToken string) Identity {
	if id, err := o.userInfoV2(ctx, accessToken); err == nil && id.Email != "" {
		return id
	} else if err != nil {
		o.logger.Debug("userinfo lookup failed", slog.Any("err", err))
	}

	if id, err := o.oidcUserInfo(ctx, accessToken); err == nil && id.Email != "" {
		return id
	} else if err != nil {
		o.logger.Debug("oidc userinfo lookup failed", slog.Any("err", err))
	}

	return Identity{Email: o.emailFromCalendars(ctx, accessToken)}
}

func (o options) userInfoV2(ctx context.Context, accessToken string) (Identity, error) {
	hc := oauth2.NewClient(o.context(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	svc, err := oauth2api.NewService(ctx,
		option.WithHTTPClient(hc),
		option.WithEndpoint(o.endpoints.UserInfoAPI),
	)
	if err != nil {
		return Identity{}, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: info.Email, Picture: info.Picture}, nil
}

func (o options) oidcUserInfo(ctx context.Context, accessToken string) (Identity, error) {
	if o.httpClient != nil {
		ctx = oidc.ClientContext(ctx, o.httpClient)
	}
	provider := (&oidc.ProviderConfig{UserInfoURL: o.endpoints.OIDCUserInfo}).NewProvider(ctx)

	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return Identity{}, err
	}

	var claims struct {
		Picture string `json:"picture"`
	}
	_ = info.Claims(&claims)
	return Identity{Email: info.Email, Picture: claims.Picture}, nil
}

// emailFromCalendars uses the primary calendar id, which is the account email for Google accounts.
func (o options) emailFromCalendars(ctx context.Context, accessToken string) string {
	client := gcal.New(gcal.WithEndpoint(o.endpoints.CalendarAPI), gcal.WithHTTPClient(o.httpClient))
	entries, err := client.ListCalendars(ctx, accessToken)
	if err != nil {
		o.logger.Debug("calendar list lookup failed", slog.Any("err", err))
		return ""
	}

	for _, e := range entries {
		if e.Primary && strings.Contains(e.Id, "@") {
			return e.Id
		}
	}
	for _, e := range entries {
		if strings.Contains(e.Id, "@") {
			return e.Id
		}
	}
	return ""
}
