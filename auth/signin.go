// ABOUTME: Interactive Google sign-in over a loopback redirect with PKCE
// ABOUTME: Exchanges the code, resolves the account identity, and stores the account
package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/vault"
)

// Messages returned in Result.Error.
const (
	ErrMissingCredentials = "Client ID and Client Secret are required in settings."
	ErrBindFailed         = "Could not bind callback port"
	ErrTimedOut           = "Sign in cancelled or timed out"
	ErrInvalidCallback    = "Invalid state or missing code"
	ErrExchangeFailed     = "Token exchange failed"
	ErrNoRefreshToken     = "No refresh token received"
)

// SignInStore is the part of the vault the sign-in flow needs.
type SignInStore interface {
	Accounts() ([]vault.Account, error)
	Upsert(account vault.Account) error
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) (string, bool)
}

// Result is the outcome of a sign-in attempt.
type Result struct {
	Success bool
	Error   string
	Email   string
}

// Flow runs the browser sign-in.
type Flow struct {
	store    SignInStore
	settings config.Provider
	opts     options
}

// NewFlow creates a sign-in flow that stores accounts in store.
func NewFlow(store SignInStore, settings config.Provider, opts ...Option) *Flow {
	return &Flow{store: store, settings: settings, opts: buildOptions(opts)}
}

// SignIn opens the consent page and waits for the redirect, the timeout, or ctx.
// It resolves exactly once; the first outcome wins.
func (f *Flow) SignIn(ctx context.Context) Result {
	settings := f.settings.Settings()
	if !settings.HasCredentials() {
		return Result{Error: ErrMissingCredentials}
	}

	state, err := newState()
	if err != nil {
		return Result{Error: err.Error()}
	}
	verifier, err := newVerifier()
	if err != nil {
		return Result{Error: err.Error()}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Result{Error: ErrBindFailed}
	}
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok || addr.Port == 0 {
		_ = ln.Close()
		return Result{Error: ErrBindFailed}
	}

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d%s", addr.Port, CallbackPath)
	cfg := NewOAuthConfig(settings, f.opts.endpoints.OAuth, redirectURL)

	cbCtx, cancelCallbacks := context.WithCancel(f.opts.context(ctx))
	defer cancelCallbacks()
	res := &resolver{done: make(chan Result, 1), cancel: cancelCallbacks}

	cb := &callback{
		flow:     f,
		ctx:      cbCtx,
		cfg:      cfg,
		state:    state,
		verifier: verifier,
		res:      res,
	}
	mux := http.NewServeMux()
	mux.Handle(CallbackPath, cb)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	timer := time.NewTimer(f.opts.timeout)
	defer timer.Stop()

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)
	if err := f.opts.opener(authURL); err != nil {
		f.opts.logger.Warn("failed to open browser", slog.Any("err", err))
	}

	var result Result
	select {
	case result = <-res.done:
	case <-timer.C:
		res.finish(Result{Error: ErrTimedOut})
		result = <-res.done
	case <-ctx.Done():
		res.finish(Result{Error: ErrTimedOut})
		result = <-res.done
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}
	return result
}

// resolver hands out the single result of a flow. Once it has resolved, the
// callback context is cancelled and no further account is stored.
type resolver struct {
	mu       sync.Mutex
	done     chan Result
	cancel   context.CancelFunc
	resolved bool
}

func (r *resolver) finish(result Result) {
	r.settle(func() Result { return result })
}

// settle runs fn and resolves with its result. It reports false without
// running fn when the flow has already resolved.
func (r *resolver) settle(fn func() Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return false
	}
	result := fn()
	r.resolved = true
	r.cancel()
	r.done <- result
	return true
}

type callback struct {
	flow     *Flow
	ctx      context.Context
	cfg      *oauth2.Config
	state    string
	verifier string
	res      *resolver
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CallbackPath {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		c.res.finish(Result{Error: e})
		writePage(w, fmt.Sprintf("Sign in failed: %s.", e))
		return
	}
	code := q.Get("code")
	if code == "" || q.Get("state") != c.state {
		c.res.finish(Result{Error: ErrInvalidCallback})
		writePage(w, "Invalid response.")
		return
	}

	writePage(w, c.complete(code))
}

// complete exchanges the code, stores the account, and resolves the flow.
// It returns the page text.
func (c *callback) complete(code string) string {
	opts := c.flow.opts

	tok, err := c.cfg.Exchange(c.ctx, code, oauth2.VerifierOption(c.verifier))
	if err != nil {
		msg := ErrExchangeFailed
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			msg = re.ErrorCode
		}
		opts.logger.Warn("token exchange failed", slog.Any("err", err))
		c.res.finish(Result{Error: msg})
		return fmt.Sprintf("Token error: %s.", msg)
	}

	identity := opts.resolveIdentity(c.ctx, tok.AccessToken)
	email := identity.Email
	if email == "" {
		email = vault.UnknownEmail
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = c.storedRefreshToken(email)
	}
	if refresh == "" {
		c.res.finish(Result{Error: ErrNoRefreshToken})
		return `No refresh token. Sign out that account in the app and sign in again with "consent" to get a refresh token.`
	}

	page := "Signed in successfully."
	store := c.flow.store
	settled := c.res.settle(func() Result {
		err := store.Upsert(vault.Account{
			Email:        email,
			Picture:      identity.Picture,
			RefreshToken: store.Encrypt(refresh),
			AccessToken:  tok.AccessToken,
			Expiry:       expiryMillis(tok, opts.now()),
		})
		if err != nil {
			page = fmt.Sprintf("Error: %s.", err.Error())
			return Result{Error: err.Error()}
		}
		opts.logger.Info("signed in", slog.String("account", email))
		return Result{Success: true, Email: email}
	})
	if !settled {
		opts.logger.Warn("sign-in callback arrived after the flow ended", slog.String("account", email))
		return "Sign in was cancelled or timed out."
	}
	return page
}

func (c *callback) storedRefreshToken(email string) string {
	accounts, err := c.flow.store.Accounts()
	if err != nil {
		return ""
	}
	for _, a := range accounts {
		if a.Email == email {
			plain, _ := c.flow.store.Decrypt(a.RefreshToken)
			return plain
		}
	}
	return ""
}

func writePage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "<script>window.close()</script><p>%s You can close this tab.</p>", html.EscapeString(message))
}
