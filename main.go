// ABOUTME: Entry point for the weekcal CLI
// ABOUTME: Loads .env, wires on-disk state, and routes to CLI commands
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/harperreed/weekcal/cli"
	"github.com/harperreed/weekcal/vault"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/weekcal/weekcal.db)")
	settingsPath := flag.String("config", "", "Settings file (default: ~/.config/weekcal/settings.json)")
	verbose := flag.Bool("verbose", false, "Log debug output to stderr")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("weekcal version %s\n", version)
		os.Exit(0)
	}

	// A missing .env is fine
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(vault.Dir(), ".env"))

	args := flag.Args()
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	// With no command, open the week view on a terminal and print usage otherwise
	if len(args) == 0 {
		if !interactive {
			printUsage()
			os.Exit(0)
		}
		args = []string{"tui"}
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	paths := cli.DefaultPaths()
	if *dbPath != "" {
		paths.Database = *dbPath
	}
	if *settingsPath != "" {
		paths.Settings = *settingsPath
	}

	app, err := cli.Open(paths, newLogger(command, *verbose))
	if err != nil {
		log.Fatalf("Failed to open weekcal state: %v", err)
	}
	defer func() { _ = app.Close() }()

	ctx := context.Background()

	switch command {
	case "signin":
		err = cli.SignInCommand(ctx, app, commandArgs)
	case "signout":
		err = cli.SignOutCommand(app, commandArgs)
	case "accounts":
		err = cli.AccountsCommand(app, commandArgs)
	case "credentials":
		err = cli.CredentialsCommand(app, commandArgs, os.Stdin)
	case "refresh":
		err = cli.RefreshCommand(ctx, app, commandArgs)
	case "calendars":
		err = cli.CalendarsCommand(ctx, app, commandArgs)
	case "events":
		err = cli.EventsCommand(ctx, app, commandArgs)
	case "watch":
		err = cli.WatchCommand(ctx, app, commandArgs)
	case "tui":
		err = cli.TUICommand(ctx, app, commandArgs)
	case "config":
		err = cli.ConfigCommand(ctx, app, commandArgs)
	case "status":
		err = cli.StatusCommand(app, commandArgs)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		_ = app.Close()
		os.Exit(1)
	}

	if err != nil {
		_ = app.Close()
		log.Fatalf("Error: %v", err)
	}
}

// newLogger keeps the terminal view clean: it only logs when asked to.
func newLogger(command string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	if command == "tui" && !verbose {
		out = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func printUsage() {
	fmt.Printf(`weekcal v%s - This week across all your Google calendars

USAGE:
  weekcal [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/weekcal/weekcal.db)
  --config <path>        Settings file (default: ~/.config/weekcal/settings.json)
  --verbose              Log debug output to stderr

ACCOUNT COMMANDS:
  weekcal credentials       Store the OAuth client id and secret
    --client-id <id>          Client id (prompted when omitted)

  weekcal signin            Sign in with Google in the browser
    --no-browser              Print the consent URL only

  weekcal signout           Sign out
    --email <email>           Only this account (default: all)

  weekcal accounts          List signed-in accounts

CALENDAR COMMANDS:
  weekcal refresh           Run one refresh and report failures
  weekcal calendars         List calendars (✓ marks the selection)
    --json                    Print JSON
  weekcal events            Print this week's events by day
    --json                    Print JSON

  weekcal watch             Refresh on the configured interval (SIGHUP reloads settings)
    --metrics-addr <addr>     Status server address (default: %s, empty disables)

  weekcal tui               Interactive week view (default on a terminal)

SETTINGS:
  weekcal config get [key]          Show settings
  weekcal config set key=value...   Update settings

  weekcal status            Sync state and recent notifications

ENVIRONMENT:
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET   OAuth client credentials
  WEEKCAL_REFRESH_INTERVAL                 Refresh interval in seconds
  WEEKCAL_CALENDARS                        Comma separated calendar ids

EXAMPLES:
  # Only show two calendars
  weekcal config set selectedCalendarIds=me@example.com,team@group.calendar.google.com

  # Show weekends with muted colors
  weekcal config set showWeekends=true muteCalendarColors=true

`, version, cli.DefaultStatusAddr)
}
