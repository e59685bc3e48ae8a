// ABOUTME: Color helpers for calendar event blocks
// ABOUTME: Dark/light detection, contrasting text color, and muted calendar colors
package colors

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	hex3Pattern = regexp.MustCompile(`^#([0-9a-fA-F])([0-9a-fA-F])([0-9a-fA-F])$`)
	hex6Pattern = regexp.MustCompile(`^#([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})?$`)
	rgbPattern  = regexp.MustCompile(`^rgb\s*\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)$`)
)

// Parse reads #rgb, #rrggbb, #rrggbbaa (alpha ignored) and rgb(r, g, b) strings.
func Parse(color string) (colorful.Color, bool) {
	s := strings.TrimSpace(color)

	if m := hex3Pattern.FindStringSubmatch(s); m != nil {
		return colorful.Color{
			R: hexChannel(m[1] + m[1]),
			G: hexChannel(m[2] + m[2]),
			B: hexChannel(m[3] + m[3]),
		}, true
	}
	if m := hex6Pattern.FindStringSubmatch(s); m != nil {
		return colorful.Color{
			R: hexChannel(m[1]),
			G: hexChannel(m[2]),
			B: hexChannel(m[3]),
		}, true
	}
	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		return colorful.Color{
			R: decChannel(m[1]),
			G: decChannel(m[2]),
			B: decChannel(m[3]),
		}, true
	}
	return colorful.Color{}, false
}

func hexChannel(s string) float64 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return float64(v) / 255
}

func decChannel(s string) float64 {
	v, _ := strconv.Atoi(s)
	return float64(v) / 255
}

// IsColorDark reports whether light text should be drawn over color.
// Unparseable colors count as dark.
func IsColorDark(color string) bool {
	c, ok := Parse(color)
	if !ok {
		return true
	}
	luminance := 0.299*c.R + 0.587*c.G + 0.114*c.B
	return luminance < 0.5
}

// ContrastTextColor returns #fff for dark backgrounds and #111 for light ones.
func ContrastTextColor(background string) string {
	if IsColorDark(background) {
		return "#fff"
	}
	return "#111"
}

// MuteCalendarColor keeps the hue but pulls saturation down and lightness toward a
// pastel (bright input) or a deep muted tone (dark input).
// Unparseable input is returned unchanged.
func MuteCalendarColor(hex string) string {
	c, ok := Parse(hex)
	if !ok {
		return hex
	}
	h, s, l := c.Hsl()

	mutedS := clamp(s*0.5, 0.1, 0.4)
	var mutedL float64
	if l >= 0.5 {
		mutedL = clamp(l*0.75+0.35, 0.72, 0.88)
	} else {
		mutedL = clamp(l*0.7+0.05, 0.2, 0.38)
	}
	return colorful.Hsl(h, mutedS, mutedL).Clamped().Hex()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
