package auth

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// BrowserOpener opens a URL in the user's browser.
type BrowserOpener func(url string) error

// OpenBrowser launches the platform URL handler.
func OpenBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// IsExternalURL reports whether raw is an absolute http or https URL.
func IsExternalURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// OpenExternalURL opens event links. Anything that is not http(s) is refused.
func OpenExternalURL(raw string, open BrowserOpener) error {
	if !IsExternalURL(raw) {
		return fmt.Errorf("refusing to open %q: only http and https links are allowed", raw)
	}
	if open == nil {
		open = OpenBrowser
	}
	return open(strings.TrimSpace(raw))
}
