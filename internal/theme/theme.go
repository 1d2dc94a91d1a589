package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title line of every rendered result.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps a rendered result.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for field names in key/value listings.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(12)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// OKStyle marks a successful outcome.
var OKStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)

// ErrorStyle marks a failed outcome.
var ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

// QuotaStyle colors the remaining allowance: green while plenty is left,
// yellow for the last fifth of the cap, red when exhausted.
func QuotaStyle(remaining, cap int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case remaining <= 0:
		return base.Foreground(ColorRed)
	case remaining*5 <= cap:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGreen)
	}
}
