// ABOUTME: Partial settings updates and key=value parsing for the config command
// ABOUTME: Nil fields in a Patch leave the stored value untouched
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Patch is a partial update. Only non-nil fields are written.
type Patch struct {
	ShowWeekends           *bool
	UIColor                *string
	Opacity                *int
	AlwaysOnTop            *bool
	MuteCalendarColors     *bool
	CurrentTimeLineColor   *string
	RefreshIntervalSeconds *int
	WidgetTimeStartHour    *int
	WidgetTimeEndHour      *int
	AutoLaunch             *bool
	SoundNotification      *bool
	SelectedCalendarIDs    *[]string
	GoogleClientID         *string
	GoogleClientSecret     *string
}

func (p Patch) apply(s *Settings) {
	if p.ShowWeekends != nil {
		s.ShowWeekends = *p.ShowWeekends
	}
	if p.UIColor != nil {
		s.UIColor = *p.UIColor
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	if p.AlwaysOnTop != nil {
		s.AlwaysOnTop = *p.AlwaysOnTop
	}
	if p.MuteCalendarColors != nil {
		s.MuteCalendarColors = *p.MuteCalendarColors
	}
	if p.CurrentTimeLineColor != nil {
		s.CurrentTimeLineColor = *p.CurrentTimeLineColor
	}
	if p.RefreshIntervalSeconds != nil {
		s.RefreshIntervalSeconds = *p.RefreshIntervalSeconds
	}
	if p.WidgetTimeStartHour != nil {
		s.WidgetTimeStartHour = *p.WidgetTimeStartHour
	}
	if p.WidgetTimeEndHour != nil {
		s.WidgetTimeEndHour = *p.WidgetTimeEndHour
	}
	if p.AutoLaunch != nil {
		s.AutoLaunch = *p.AutoLaunch
	}
	if p.SoundNotification != nil {
		s.SoundNotification = *p.SoundNotification
	}
	if p.SelectedCalendarIDs != nil {
		s.SelectedCalendarIDs = append([]string{}, (*p.SelectedCalendarIDs)...)
	}
	if p.GoogleClientID != nil {
		s.GoogleClientID = *p.GoogleClientID
	}
	if p.GoogleClientSecret != nil {
		s.GoogleClientSecret = *p.GoogleClientSecret
	}
}

// TouchesSelection reports whether the patch changes the calendar selection.
func (p Patch) TouchesSelection() bool {
	return p.SelectedCalendarIDs != nil
}

// TouchesInterval reports whether the patch changes the refresh interval.
func (p Patch) TouchesInterval() bool {
	return p.RefreshIntervalSeconds != nil
}

// accessors maps the JSON key of every setting to its getter and parser.
var accessors = map[string]struct {
	get   func(Settings) string
	parse func(string, *Patch) error
}{
	"showWeekends":           {func(s Settings) string { return strconv.FormatBool(s.ShowWeekends) }, boolField(func(p *Patch) **bool { return &p.ShowWeekends })},
	"uiColor":                {func(s Settings) string { return s.UIColor }, stringField(func(p *Patch) **string { return &p.UIColor })},
	"opacity":                {func(s Settings) string { return strconv.Itoa(s.Opacity) }, intField(func(p *Patch) **int { return &p.Opacity })},
	"alwaysOnTop":            {func(s Settings) string { return strconv.FormatBool(s.AlwaysOnTop) }, boolField(func(p *Patch) **bool { return &p.AlwaysOnTop })},
	"muteCalendarColors":     {func(s Settings) string { return strconv.FormatBool(s.MuteCalendarColors) }, boolField(func(p *Patch) **bool { return &p.MuteCalendarColors })},
	"currentTimeLineColor":   {func(s Settings) string { return s.CurrentTimeLineColor }, stringField(func(p *Patch) **string { return &p.CurrentTimeLineColor })},
	"refreshIntervalSeconds": {func(s Settings) string { return strconv.Itoa(s.RefreshIntervalSeconds) }, intField(func(p *Patch) **int { return &p.RefreshIntervalSeconds })},
	"widgetTimeStartHour":    {func(s Settings) string { return strconv.Itoa(s.WidgetTimeStartHour) }, intField(func(p *Patch) **int { return &p.WidgetTimeStartHour })},
	"widgetTimeEndHour":      {func(s Settings) string { return strconv.Itoa(s.WidgetTimeEndHour) }, intField(func(p *Patch) **int { return &p.WidgetTimeEndHour })},
	"autoLaunch":             {func(s Settings) string { return strconv.FormatBool(s.AutoLaunch) }, boolField(func(p *Patch) **bool { return &p.AutoLaunch })},
	"soundNotification":      {func(s Settings) string { return strconv.FormatBool(s.SoundNotification) }, boolField(func(p *Patch) **bool { return &p.SoundNotification })},
	"selectedCalendarIds": {
		func(s Settings) string { return strings.Join(s.SelectedCalendarIDs, ",") },
		func(v string, p *Patch) error {
			ids := splitList(v)
			p.SelectedCalendarIDs = &ids
			return nil
		},
	},
	"googleClientId":     {func(s Settings) string { return s.GoogleClientID }, stringField(func(p *Patch) **string { return &p.GoogleClientID })},
	"googleClientSecret": {func(s Settings) string { return mask(s.GoogleClientSecret) }, stringField(func(p *Patch) **string { return &p.GoogleClientSecret })},
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get renders one setting as text. Secrets are masked.
func Get(s Settings, key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	return a.get(s), nil
}

// ParseAssignment turns "key=value" into a Patch.
func ParseAssignment(assignment string) (Patch, error) {
	key, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return Patch{}, fmt.Errorf("expected key=value, got %q", assignment)
	}
	key = strings.TrimSpace(key)
	a, found := accessors[key]
	if !found {
		return Patch{}, fmt.Errorf("unknown setting %q", key)
	}
	var p Patch
	if err := a.parse(strings.TrimSpace(value), &p); err != nil {
		return Patch{}, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return p, nil
}

func boolField(field func(*Patch) **bool) func(string, *Patch) error {
	return func(v string, p *Patch) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(p) = &b
		return nil
	}
}

func intField(field func(*Patch) **int) func(string, *Patch) error {
	return func(v string, p *Patch) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(p) = &n
		return nil
	}
}

func stringField(field func(*Patch) **string) func(string, *Patch) error {
	return func(v string, p *Patch) error {
		*field(p) = &v
		return nil
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
