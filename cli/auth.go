// ABOUTME: Account CLI commands
// ABOUTME: Browser sign-in, sign-out, account listing, and OAuth client credential setup
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/harperreed/weekcal/auth"
	"github.com/harperreed/weekcal/config"
)

// SignInCommand runs the browser consent flow and stores the account.
func SignInCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	noBrowser := fs.Bool("no-browser", false, "Print the consent URL instead of opening a browser")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opener := func(url string) error {
		app.println("Opening browser for Google sign-in...")
		app.printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", url)
		if *noBrowser {
			return nil
		}
		return auth.OpenBrowser(url)
	}

	opts := append(append([]auth.Option{}, app.AuthOptions...), auth.WithBrowserOpener(opener))
	result := auth.NewFlow(app.Vault, app.Settings, opts...).SignIn(ctx)
	if !result.Success {
		return fmt.Errorf("sign-in failed: %s", result.Error)
	}

	app.printf("✓ Signed in as %s\n", result.Email)
	if !app.Vault.Secure() {
		app.println("⚠ Tokens are stored base64 encoded, not encrypted")
	}
	return nil
}

// SignOutCommand removes one account, or all of them without --email.
func SignOutCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("signout", flag.ContinueOnError)
	email := fs.String("email", "", "Account to remove (default: all accounts)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := strings.TrimSpace(*email)
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "email" {
			given = true
		}
	})
	if given && target == "" {
		return fmt.Errorf("--email is empty, omit it to sign out of all accounts")
	}

	if err := app.Vault.Remove(target); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if target == "" {
		app.println("✓ Signed out of all accounts")
	} else {
		app.printf("✓ Signed out of %s\n", target)
	}
	return nil
}

// AccountsCommand lists signed-in accounts.
func AccountsCommand(app *App, args []string) error {
	profiles, err := app.Vault.Profiles()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(profiles) == 0 {
		app.println("No accounts. Run 'weekcal signin' to add one.")
		return nil
	}
	for i, p := range profiles {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		app.printf("%s %s\n", marker, p.Email)
	}
	return nil
}

// CredentialsCommand stores the OAuth client id and secret.
// The secret is read without echo when stdin is a terminal.
func CredentialsCommand(app *App, args []string, stdin *os.File) error {
	fs := flag.NewFlagSet("credentials", flag.ContinueOnError)
	clientID := fs.String("client-id", "", "OAuth client id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader := bufio.NewReader(stdin)
	id := strings.TrimSpace(*clientID)
	if id == "" {
		app.printf("Client ID: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		id = strings.TrimSpace(line)
	}

	app.printf("Client secret: ")
	secret, err := readSecret(stdin, reader)
	if err != nil {
		return err
	}
	app.println()

	if id == "" || secret == "" {
		return errors.New("client id and secret are both required")
	}

	if _, err := app.Settings.Update(config.Patch{GoogleClientID: &id, GoogleClientSecret: &secret}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	app.println("✓ OAuth client credentials saved")
	return nil
}

func readSecret(stdin *os.File, reader *bufio.Reader) (string, error) {
	fd := int(stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
