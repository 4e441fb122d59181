package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "ready", 10, "ready"},
		{"exact", "ready", 5, "ready"},
		{"cut", `{"event":"requestProgress"}`, 12, `{"event":...`},
		{"tiny limit", "ready", 3, "..."},
		{"zero limit", "ready", 0, "..."},
		{"runes", "módèlé-fïlé", 8, "módèl..."},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("processing complete")

	tests := []struct {
		name      string
		input     string
		width     int
		wantWidth int
	}{
		{"fits", "✓ done", 20, 6},
		{"plain cut", "modelFile(out.usdz) progress 50.0%", 12, 12},
		{"styled fits", styled, 40, lipgloss.Width(styled)},
		{"styled cut", styled, 10, 10},
		{"wide runes", "模型模型模型模型", 9, 9},
		{"tiny", "anything", 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWidth(tt.input, tt.width)
			if w := lipgloss.Width(got); w > tt.wantWidth {
				t.Errorf("TruncateWidth() width = %d, want <= %d (%q)", w, tt.wantWidth, got)
			}
		})
	}
}
