// ABOUTME: Produces a valid access token for every stored account
// ABOUTME: Refreshes tokens that are missing or within a minute of expiry
package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/metrics"
	"github.com/harperreed/weekcal/vault"
)

// expirySkew is how early a token is treated as expired.
const expirySkew = 60 * time.Second

// AccountStore is the part of the vault the refresher needs.
type AccountStore interface {
	Accounts() ([]vault.Account, error)
	Save(accounts []vault.Account) error
	Decrypt(ciphertext string) (string, bool)
}

// AccountToken is a usable access token for one account.
type AccountToken struct {
	Email       string
	Picture     string
	AccessToken string
}

// Refresher hands out access tokens, refreshing them as needed.
type Refresher struct {
	accounts AccountStore
	settings config.Provider
	opts     options
}

// NewRefresher creates a Refresher over the given account store.
func NewRefresher(accounts AccountStore, settings config.Provider, opts ...Option) *Refresher {
	return &Refresher{accounts: accounts, settings: settings, opts: buildOptions(opts)}
}

// ValidAccessTokens returns one token per usable account, in vault order.
// Accounts whose token cannot be decrypted or refreshed are skipped.
func (r *Refresher) ValidAccessTokens(ctx context.Context) []AccountToken {
	logger := r.opts.logger
	settings := r.settings.Settings()
	if !settings.HasCredentials() {
		return []AccountToken{}
	}

	accounts, err := r.accounts.Accounts()
	if err != nil {
		logger.Warn("failed to load accounts", slog.Any("err", err))
		return []AccountToken{}
	}

	cfg := NewOAuthConfig(settings, r.opts.endpoints.OAuth, "")
	ctx = r.opts.context(ctx)

	result := make([]AccountToken, 0, len(accounts))
	dirty := false
	for i := range accounts {
		acc := accounts[i]
		refreshToken, ok := r.accounts.Decrypt(acc.RefreshToken)
		if !ok || refreshToken == "" {
			logger.Debug("skipping account with unreadable refresh token", slog.String("account", acc.Email))
			continue
		}

		accessToken := acc.AccessToken
		if r.needsRefresh(acc) {
			tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil || tok.AccessToken == "" {
				metrics.TokenRefreshes.WithLabelValues("failure").Inc()
				logger.Warn("token refresh failed", slog.String("account", acc.Email), slog.Any("err", err))
				continue
			}
			metrics.TokenRefreshes.WithLabelValues("success").Inc()

			accessToken = tok.AccessToken
			accounts[i].AccessToken = accessToken
			accounts[i].Expiry = expiryMillis(tok, r.opts.now())
			dirty = true
		}

		if accessToken != "" {
			result = append(result, AccountToken{
				Email:       acc.Email,
				Picture:     acc.Picture,
				AccessToken: accessToken,
			})
		}
	}

	if dirty {
		if err := r.accounts.Save(accounts); err != nil {
			logger.Warn("failed to persist refreshed tokens", slog.Any("err", err))
		}
	}
	return result
}

// ValidAccessToken returns the first account's token.
func (r *Refresher) ValidAccessToken(ctx context.Context) (string, bool) {
	tokens := r.ValidAccessTokens(ctx)
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0].AccessToken, true
}

func (r *Refresher) needsRefresh(acc vault.Account) bool {
	if acc.AccessToken == "" || acc.Expiry == 0 {
		return true
	}
	expiry := time.UnixMilli(acc.Expiry)
	return !r.opts.now().Before(expiry.Add(-expirySkew))
}
