package draw

import (
	"regexp"
	"strconv"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// IsHexColor reports whether s is a #rrggbb colour.
func IsHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}

// IsDark uses perceived luminance (0.299r + 0.587g + 0.114b) against the
// midpoint. Anything that is not #rrggbb is treated as dark.
func IsDark(hex string) bool {
	if !IsHexColor(hex) {
		return true
	}
	r, _ := strconv.ParseUint(hex[1:3], 16, 8)
	g, _ := strconv.ParseUint(hex[3:5], 16, 8)
	b, _ := strconv.ParseUint(hex[5:7], 16, 8)
	return float64(r)*0.299+float64(g)*0.587+float64(b)*0.114 < 128
}

// Theme holds the text colours derived from a background.
type Theme struct {
	Background string
	Text       string
	Subtext    string
	Grid       string
	// OnMark is the colour of text drawn on top of a coloured mark.
	OnMark string
}

func ThemeFor(bg string) Theme {
	if IsDark(bg) {
		return Theme{
			Background: bg,
			Text:       "#f1f5f9",
			Subtext:    "#64748b",
			Grid:       "rgba(255,255,255,0.06)",
			OnMark:     "#0f172a",
		}
	}
	return Theme{
		Background: bg,
		Text:       "#1e293b",
		Subtext:    "#94a3b8",
		Grid:       "rgba(0,0,0,0.06)",
		OnMark:     "#ffffff",
	}
}

// Ordinal cycles through a palette by position.
func Ordinal(palette []string, i int) string {
	if len(palette) == 0 {
		return "#888888"
	}
	return palette[i%len(palette)]
}
