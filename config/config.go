// ABOUTME: Application settings stored as JSON at an XDG config path
// ABOUTME: Handles defaults, partial updates, and environment variable overrides
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

const (
	// AppName names the XDG subdirectories used by weekcal.
	AppName = "weekcal"

	// ConfigFileName is the settings file inside the config directory.
	ConfigFileName = "settings.json"

	// MinRefreshIntervalSeconds is the floor applied by the refresh scheduler.
	MinRefreshIntervalSeconds = 30
)

// Settings is the full set of user preferences.
type Settings struct {
	ShowWeekends           bool     `json:"showWeekends"`
	UIColor                string   `json:"uiColor"`
	Opacity                int      `json:"opacity"`
	AlwaysOnTop            bool     `json:"alwaysOnTop"`
	MuteCalendarColors     bool     `json:"muteCalendarColors"`
	CurrentTimeLineColor   string   `json:"currentTimeLineColor"`
	RefreshIntervalSeconds int      `json:"refreshIntervalSeconds"`
	WidgetTimeStartHour    int      `json:"widgetTimeStartHour"`
	WidgetTimeEndHour      int      `json:"widgetTimeEndHour"`
	AutoLaunch             bool     `json:"autoLaunch"`
	SoundNotification      bool     `json:"soundNotification"`
	SelectedCalendarIDs    []string `json:"selectedCalendarIds"`
	GoogleClientID         string   `json:"googleClientId,omitempty"`
	GoogleClientSecret     string   `json:"googleClientSecret,omitempty"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{
		ShowWeekends:           false,
		UIColor:                "#e0e0e0",
		Opacity:                90,
		AlwaysOnTop:            false,
		MuteCalendarColors:     false,
		CurrentTimeLineColor:   "#fa8a52",
		RefreshIntervalSeconds: 60,
		WidgetTimeStartHour:    7,
		WidgetTimeEndHour:      20,
		AutoLaunch:             false,
		SoundNotification:      false,
		SelectedCalendarIDs:    []string{},
	}
}

// HasCredentials reports whether both OAuth client values are set.
func (s Settings) HasCredentials() bool {
	return strings.TrimSpace(s.GoogleClientID) != "" && strings.TrimSpace(s.GoogleClientSecret) != ""
}

// Provider supplies the current settings to the auth and agenda packages.
type Provider interface {
	Settings() Settings
}

// Static is a fixed Provider, handy for one-shot commands and tests.
type Static Settings

// Settings returns the wrapped value.
func (s Static) Settings() Settings {
	return Settings(s)
}

// Path returns the XDG-compliant settings file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Store is a file-backed Provider. Writes go to disk before returning.
type Store struct {
	path     string
	mu       sync.RWMutex
	settings Settings
}

// Open loads the settings at path, or defaults when the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, settings: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if loaded.SelectedCalendarIDs == nil {
		loaded.SelectedCalendarIDs = []string{}
	}
	s.settings = loaded
	return s, nil
}

// Settings returns a copy of the stored settings with environment overrides applied.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	out := s.settings
	out.SelectedCalendarIDs = append([]string(nil), s.settings.SelectedCalendarIDs...)
	s.mu.RUnlock()

	applyEnvOverrides(&out)
	return out
}

// Update applies the non-nil fields of p and persists the result.
func (s *Store) Update(p Patch) (Settings, error) {
	s.mu.Lock()
	next := s.settings
	p.apply(&next)
	if err := save(s.path, next); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	s.settings = next
	s.mu.Unlock()

	return s.Settings(), nil
}

// Reload re-reads the settings file. A missing file resets to defaults.
func (s *Store) Reload() (Settings, error) {
	fresh, err := Open(s.path)
	if err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	s.settings = fresh.settings
	s.mu.Unlock()
	return s.Settings(), nil
}

func save(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides:
// - GOOGLE_CLIENT_ID
// - GOOGLE_CLIENT_SECRET
// - WEEKCAL_REFRESH_INTERVAL (seconds)
// - WEEKCAL_CALENDARS (comma separated ids).
func applyEnvOverrides(s *Settings) {
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		s.GoogleClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		s.GoogleClientSecret = secret
	}
	if interval := os.Getenv("WEEKCAL_REFRESH_INTERVAL"); interval != "" {
		if n, err := strconv.Atoi(interval); err == nil {
			s.RefreshIntervalSeconds = n
		}
	}
	if cals := os.Getenv("WEEKCAL_CALENDARS"); cals != "" {
		s.SelectedCalendarIDs = splitList(cals)
	}
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
