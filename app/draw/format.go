package draw

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Thousands formats v rounded to an integer with thousands separators,
// eg: 1234567.4 -> "1,234,567".
func Thousands(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// Compact formats totals for labels: 1.2M, 3.4K, or a plain integer.
func Compact(v float64) string {
	switch {
	case v >= 1_000_000:
		return strconv.FormatFloat(v/1_000_000, 'f', 1, 64) + "M"
	case v >= 1_000:
		return strconv.FormatFloat(v/1_000, 'f', 1, 64) + "K"
	}
	return Thousands(v)
}

// Percent formats share of total with one decimal, eg: "33.3%".
func Percent(v, total float64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", v/total*100)
}

// Truncate shortens s to keep runes followed by an ellipsis once it is
// longer than max runes.
func Truncate(s string, max, keep int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:keep]) + "…"
}

// Num formats a coordinate for path data.
func Num(f float64) string {
	if math.Abs(f) < 0.005 {
		return "0"
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

var attrReplacer = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

// Attr escapes s for use inside a double quoted XML attribute.
func Attr(s string) string {
	return attrReplacer.Replace(s)
}
