package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/vault"
)

// fakeGoogle serves the token, userinfo, OIDC userinfo, and calendar list endpoints.
type fakeGoogle struct {
	srv *httptest.Server

	mu            sync.Mutex
	tokenRequests []url.Values
	tokenStatus   int
	tokenBody     map[string]any
	userInfo      map[string]any
	oidcInfo      map[string]any
	calendars     []map[string]any

	// tokenEntered is signalled when a token request arrives; tokenBlock holds it until closed.
	tokenEntered chan struct{}
	tokenBlock   chan struct{}
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody:   map[string]any{"access_token": "fresh-access", "token_type": "Bearer", "expires_in": 1200},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.tokenRequests = append(f.tokenRequests, r.PostForm)
		status, body := f.tokenStatus, f.tokenBody
		entered, block := f.tokenEntered, f.tokenBlock
		f.mu.Unlock()
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		writeJSON(w, status, body)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		info := f.userInfo
		f.mu.Unlock()
		if info == nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": 500, "message": "down"}})
			return
		}
		writeJSON(w, http.StatusOK, info)
	})
	mux.HandleFunc("/oidc/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		info := f.oidcInfo
		f.mu.Unlock()
		if info == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
			return
		}
		writeJSON(w, http.StatusOK, info)
	})
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		items := f.calendars
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) endpoints() Endpoints {
	return Endpoints{
		OAuth:        oauth2.Endpoint{AuthURL: f.srv.URL + "/auth", TokenURL: f.srv.URL + "/token"},
		UserInfoAPI:  f.srv.URL + "/",
		OIDCUserInfo: f.srv.URL + "/oidc/userinfo",
		CalendarAPI:  f.srv.URL + "/calendar/v3/",
	}
}

func (f *fakeGoogle) options(extra ...Option) []Option {
	return append([]Option{WithEndpoints(f.endpoints()), WithHTTPClient(f.srv.Client())}, extra...)
}

func (f *fakeGoogle) requests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenRequests...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func credentials() config.Static {
	s := config.Defaults()
	s.GoogleClientID = "client-id"
	s.GoogleClientSecret = "client-secret"
	return config.Static(s)
}

func setupVault(t *testing.T) *vault.Vault {
	t.Helper()
	store, err := vault.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return vault.New(store, vault.EncodingCodec{})
}
