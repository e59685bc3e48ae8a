// ABOUTME: Wires settings, the credential vault, and the sync database for CLI commands
// ABOUTME: Every command receives an App and writes human output to App.Out
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/auth"
	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/db"
	"github.com/harperreed/weekcal/gcal"
	"github.com/harperreed/weekcal/vault"
)

// Paths locates the on-disk state.
type Paths struct {
	Settings string
	VaultDir string
	KeyFile  string
	Database string
}

// DefaultPaths returns the XDG locations.
func DefaultPaths() Paths {
	return Paths{
		Settings: config.Path(),
		VaultDir: filepath.Join(vault.Dir(), "vault"),
		KeyFile:  filepath.Join(vault.Dir(), "vault.key"),
		Database: db.DefaultPath(),
	}
}

// App holds the dependencies shared by commands.
type App struct {
	Settings *config.Store
	Vault    *vault.Vault
	DB       *sql.DB
	Logger   *slog.Logger
	Out      io.Writer

	// AuthOptions are passed to the sign-in flow and the token refresher.
	AuthOptions []auth.Option
	// Tokens and Fetcher default to the real refresher and Calendar client.
	Tokens  agenda.TokenProvider
	Fetcher agenda.Fetcher

	closers []func() error
}

// Open loads settings, the vault, and the sync database from paths.
func Open(paths Paths, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := config.Open(paths.Settings)
	if err != nil {
		return nil, err
	}

	var codec vault.Codec = vault.EncodingCodec{}
	key, err := vault.LoadOrCreateKey(paths.KeyFile)
	if err != nil {
		logger.Warn("vault key unavailable, tokens will only be encoded", slog.Any("err", err))
	} else {
		codec = vault.NewCodec(key)
	}

	store, err := vault.OpenBadger(paths.VaultDir)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenDatabase(paths.Database)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := NewApp(settings, vault.New(store, codec), database)
	app.Logger = logger
	app.AuthOptions = []auth.Option{auth.WithLogger(logger)}
	app.closers = []func() error{database.Close, store.Close}
	return app, nil
}

// NewApp builds an App from already-open components. database may be nil.
func NewApp(settings *config.Store, v *vault.Vault, database *sql.DB) *App {
	return &App{
		Settings: settings,
		Vault:    v,
		DB:       database,
		Logger:   slog.Default(),
		Out:      os.Stdout,
	}
}

// Close releases the vault store and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) tokens() agenda.TokenProvider {
	if a.Tokens != nil {
		return a.Tokens
	}
	return auth.NewRefresher(a.Vault, a.Settings, a.AuthOptions...)
}

func (a *App) fetcher() agenda.Fetcher {
	if a.Fetcher != nil {
		return a.Fetcher
	}
	return gcal.New()
}

// Aggregator builds an aggregator that records cycles in the sync database.
func (a *App) Aggregator(obs agenda.Observers) *agenda.Aggregator {
	opts := []agenda.Option{agenda.WithLogger(a.Logger)}
	if a.DB != nil {
		opts = append(opts, agenda.WithRecorder(db.NewRecorder(a.DB)))
	}
	return agenda.New(a.tokens(), a.fetcher(), a.Settings, obs, opts...)
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.Out, args...)
}
