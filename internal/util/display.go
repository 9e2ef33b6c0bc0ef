package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// GetDisplayWidth calculates the actual display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadString pads s with spaces to the given display width.
func PadString(s string, width int, leftAlign bool) string {
	actual := GetDisplayWidth(s)
	if actual >= width {
		return s
	}
	padding := strings.Repeat(" ", width-actual)
	if leftAlign {
		return s + padding
	}
	return padding + s
}

// TruncateLeft shortens s to at most width display cells by dropping runes
// from the front, so the tail of a long path stays visible.
func TruncateLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if GetDisplayWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	if width <= len(ellipsis) {
		return ellipsis[:width]
	}

	runes := []rune(s)
	budget := width - len(ellipsis)
	used := 0
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if used+w > budget {
			break
		}
		used += w
		start--
	}
	return ellipsis + string(runes[start:])
}
