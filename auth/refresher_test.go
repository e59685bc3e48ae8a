// ABOUTME: Tests for access token refresh across stored accounts
// ABOUTME: Uses a fake token endpoint and a fixed clock
package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/vault"
)

var fixedNow = time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestFreshTokenIsReusedWithoutNetwork(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{
		Email:        "a@x.com",
		RefreshToken: v.Encrypt("refresh-a"),
		AccessToken:  "cached",
		Expiry:       fixedNow.Add(10 * time.Minute).UnixMilli(),
	}))

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	tokens := r.ValidAccessTokens(context.Background())

	assert.Equal(t, []AccountToken{{Email: "a@x.com", AccessToken: "cached"}}, tokens)
	assert.Empty(t, fake.requests(), "no refresh for a token far from expiry")
}

func TestTokenInsideSkewIsRefreshed(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{
		Email:        "a@x.com",
		Picture:      "pic",
		RefreshToken: v.Encrypt("refresh-a"),
		AccessToken:  "stale",
		Expiry:       fixedNow.Add(30 * time.Second).UnixMilli(),
	}))

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	tokens := r.ValidAccessTokens(context.Background())

	require.Len(t, tokens, 1)
	assert.Equal(t, AccountToken{Email: "a@x.com", Picture: "pic", AccessToken: "fresh-access"}, tokens[0])

	reqs := fake.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "refresh_token", reqs[0].Get("grant_type"))
	assert.Equal(t, "refresh-a", reqs[0].Get("refresh_token"))
	assert.Equal(t, "client-id", reqs[0].Get("client_id"))
	assert.Equal(t, "client-secret", reqs[0].Get("client_secret"))

	accounts, err := v.Accounts()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", accounts[0].AccessToken)
	assert.Equal(t, fixedNow.Add(1200*time.Second).UnixMilli(), accounts[0].Expiry)
}

func TestMissingAccessTokenOrExpiryRefreshes(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{Email: "a@x.com", RefreshToken: v.Encrypt("ra")}))
	require.NoError(t, v.Upsert(vault.Account{Email: "b@x.com", RefreshToken: v.Encrypt("rb"), AccessToken: "no-expiry"}))

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	tokens := r.ValidAccessTokens(context.Background())

	require.Len(t, tokens, 2)
	assert.Len(t, fake.requests(), 2)
}

func TestFailedRefreshSkipsAccount(t *testing.T) {
	fake := newFakeGoogle(t)
	fake.tokenStatus = http.StatusBadRequest
	fake.tokenBody = map[string]any{"error": "invalid_grant"}

	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{Email: "expired@x.com", RefreshToken: v.Encrypt("r1")}))
	require.NoError(t, v.Upsert(vault.Account{
		Email:        "ok@x.com",
		RefreshToken: v.Encrypt("r2"),
		AccessToken:  "still-good",
		Expiry:       fixedNow.Add(time.Hour).UnixMilli(),
	}))

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	tokens := r.ValidAccessTokens(context.Background())

	require.Len(t, tokens, 1)
	assert.Equal(t, "ok@x.com", tokens[0].Email)

	accounts, err := v.Accounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 2, "failed accounts are kept for a later attempt")
}

func TestUndecryptableAccountSkipped(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{Email: "bad@x.com", RefreshToken: "%%% not base64"}))

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	assert.Empty(t, r.ValidAccessTokens(context.Background()))
	assert.Empty(t, fake.requests())
}

func TestNoCredentialsReturnsNothing(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	require.NoError(t, v.Upsert(vault.Account{Email: "a@x.com", RefreshToken: v.Encrypt("ra")}))

	r := NewRefresher(v, config.Static(config.Defaults()), fake.options(WithClock(clock))...)
	assert.Empty(t, r.ValidAccessTokens(context.Background()))
	assert.Empty(t, fake.requests())
}

func TestValidAccessTokenReturnsFirst(t *testing.T) {
	fake := newFakeGoogle(t)
	v := setupVault(t)
	for _, email := range []string{"first@x.com", "second@x.com"} {
		require.NoError(t, v.Upsert(vault.Account{
			Email:        email,
			RefreshToken: v.Encrypt("r"),
			AccessToken:  "tok-" + email,
			Expiry:       fixedNow.Add(time.Hour).UnixMilli(),
		}))
	}

	r := NewRefresher(v, credentials(), fake.options(WithClock(clock))...)
	tok, ok := r.ValidAccessToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, "tok-first@x.com", tok)

	empty := NewRefresher(setupVault(t), credentials(), fake.options(WithClock(clock))...)
	_, ok = empty.ValidAccessToken(context.Background())
	assert.False(t, ok)
}
