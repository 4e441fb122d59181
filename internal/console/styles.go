package console

import "github.com/charmbracelet/lipgloss"

// Palette colors. WCAG AA on dark backgrounds.
var (
	ColorPrimary = lipgloss.Color("#A78BFA") // Purple
	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#F87171") // Red
	ColorMuted   = lipgloss.Color("#9CA3AF") // Gray
)

// Styles holds the console's text styles, bound to one renderer so color
// output follows the destination's capabilities.
type Styles struct {
	Primary lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles creates Styles for r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Primary: r.NewStyle().Foreground(ColorPrimary),
		Success: r.NewStyle().Foreground(ColorSuccess).Bold(true),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError).Bold(true),
		Muted:   r.NewStyle().Foreground(ColorMuted),
	}
}
