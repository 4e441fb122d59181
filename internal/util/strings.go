// Package util holds small string helpers shared by the engine and console.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
// It is meant for log and error text, not for styled terminal output.
func Truncate(s string, maxLen int) string {
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateWidth shortens styled terminal text to width visible columns.
// Escape sequences are preserved and wide characters count double.
func TruncateWidth(s string, width int) string {
	if width <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, ellipsis)
}
